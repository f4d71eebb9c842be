package gyst

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GYST-Loop/internal/api"
	"GYST-Loop/internal/auth"
	"GYST-Loop/internal/engagement"
	"GYST-Loop/internal/session"
)

func newTestServer(t *testing.T) (*Client, *engagement.MemoryStore) {
	t.Helper()
	queue := engagement.NewMemoryQueue(64)
	t.Cleanup(func() { _ = queue.Close() })
	events := engagement.NewMemoryStore(0)
	guard, err := auth.NewService(auth.Config{Mode: auth.ModeToken, Tokens: []auth.TokenConfig{{Name: "sdk", Token: "ops-token"}}})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	server := api.NewServer(":0", api.Dependencies{
		Sessions: session.NewService(session.NewMemoryStore(time.Minute)),
		Events:   events,
		Recorder: engagement.NewRecorder(queue),
		Auth:     guard,
	})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, events
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("localhost:8080", nil); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	sess, err := client.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Section != "hero" {
		t.Fatalf("expected hero, got %q", sess.Section)
	}

	if _, err := client.Report(ctx, sess.ID, "problem"); err != nil {
		t.Fatalf("report: %v", err)
	}
	got, err := client.Observe(ctx, sess.ID, []Observation{{Section: "why", Top: 300, Height: 800, ViewportHeight: 1000}})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if got.Section != "why" {
		t.Fatalf("expected why, got %q", got.Section)
	}

	var descriptor struct {
		Label struct {
			Text string `json:"text"`
		} `json:"label"`
	}
	if err := json.Unmarshal(got.Descriptor, &descriptor); err != nil {
		t.Fatalf("decode descriptor: %v", err)
	}
	if descriptor.Label.Text != "WHY?" {
		t.Fatalf("unexpected label %q", descriptor.Label.Text)
	}

	_, err = client.Report(ctx, sess.ID, "pricing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
}

func TestFrameAndDescriptor(t *testing.T) {
	client, _ := newTestServer(t)
	ctx := context.Background()

	frame, err := client.Frame(ctx, FrameQuery{ScrollY: 4000, PinStart: 1000})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if frame.Progress != 1 || !frame.Completed || frame.Label != "100%" {
		t.Fatalf("unexpected end frame: %+v", frame)
	}
	if len(frame.Cards) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(frame.Cards))
	}

	raw, err := client.Descriptor(ctx, "unknown")
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	var neutral struct {
		Stroke string `json:"stroke"`
	}
	if err := json.Unmarshal(raw, &neutral); err != nil || neutral.Stroke != "#ffffff" {
		t.Fatalf("unexpected neutral descriptor %s (%v)", raw, err)
	}
}

func TestCreateWebCallWithoutCredential(t *testing.T) {
	client, _ := newTestServer(t)
	_, err := client.CreateWebCall(context.Background(), "agent-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "Server configuration error" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestEventsUsesAccessToken(t *testing.T) {
	client, events := newTestServer(t)
	ctx := context.Background()
	if err := events.Save(ctx, engagement.Event{ID: "e1", Kind: engagement.KindCallCreated, OccurredAt: time.Now().UTC()}); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := client.Events(ctx, EventQuery{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}

	client.SetAccessToken("ops-token")
	list, err := client.Events(ctx, EventQuery{Kinds: []string{"call_created"}, Limit: 10})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(list) != 1 || list[0].ID != "e1" {
		t.Fatalf("unexpected events: %+v", list)
	}
}
