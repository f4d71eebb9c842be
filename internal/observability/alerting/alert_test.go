package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/pkg/logger"
)

type recordingNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (r *recordingNotifier) Channel() Channel { return r.channel }

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanoutDeliversToEveryChannel(t *testing.T) {
	a := &recordingNotifier{channel: ChannelLog}
	b := &recordingNotifier{channel: ChannelWebhook, err: errors.New("down")}
	d := NewFanout(a, nil, b)

	err := d.Notify(context.Background(), Event{Code: xerrors.CodeUpstreamFailure})
	if err == nil || !strings.Contains(err.Error(), "channel webhook") {
		t.Fatalf("expected joined webhook error, got %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("every notifier should receive the event")
	}
	if diff := cmp.Diff([]Channel{ChannelLog, ChannelWebhook}, d.Channels()); diff != "" {
		t.Fatalf("channels mismatch (-want +got):\n%s", diff)
	}
}

func TestFromError(t *testing.T) {
	err := xerrors.New(xerrors.CodeMisconfigured, "", xerrors.WithMetadata("env", "RETELL_API_KEY"))
	event := FromError("proxy", err)
	if event.Code != xerrors.CodeMisconfigured || event.Severity != xerrors.SeverityCritical || event.Metadata["env"] != "RETELL_API_KEY" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, Headers: map[string]string{"X-Token": "t"}, Client: srv.Client()}
	if err := n.Notify(context.Background(), Event{Code: xerrors.CodeStorageFailure, Source: "engagement"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Code != xerrors.CodeStorageFailure || got.Source != "engagement" {
		t.Fatalf("unexpected payload: %+v", got)
	}

	n.Headers = nil
	if err := n.Notify(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestLogNotifierWritesAudit(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, slog.LevelInfo)
	_ = LogNotifier{}.Notify(context.Background(), Event{Code: xerrors.CodeTimeout, Metadata: map[string]string{"agent_id": "a"}})
	if !strings.Contains(buf.String(), `"meta.agent_id":"a"`) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}
