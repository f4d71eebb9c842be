package retell

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xerrors "GYST-Loop/internal/errors"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "  "})
	if xerrors.CodeOf(err) != xerrors.CodeMisconfigured {
		t.Fatalf("expected misconfigured error, got %v", err)
	}
}

func TestCreateWebCallSuccess(t *testing.T) {
	var captured struct {
		Path          string
		Authorization string
		Body          map[string]string
	}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"sample_rate":  24000,
			"call_id":      "call_1",
			"agent_id":     "agent-1",
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, err := client.CreateWebCall(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.AccessToken != "tok" || call.SampleRate != "24000" || call.CallID != "call_1" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if calls != 1 || captured.Path != "/v2/create-web-call" || captured.Authorization != "Bearer secret" {
		t.Fatalf("unexpected upstream request: %d %+v", calls, captured)
	}
	if captured.Body["agent_id"] != "agent-1" {
		t.Fatalf("unexpected body: %v", captured.Body)
	}
}

func TestCreateWebCallUpstreamError(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message", http.StatusUnauthorized, `{"message":"Invalid API key"}`, "Invalid API key"},
		{"no message", http.StatusUnprocessableEntity, `{"error":"x"}`, FallbackMessage},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, FallbackMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := NewClient(Config{APIKey: "secret", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, err = client.CreateWebCall(context.Background(), "agent-1")
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if upstream.StatusCode != tc.status || upstream.Message != tc.message {
				t.Fatalf("unexpected upstream error: %+v", upstream)
			}
			if calls != 1 {
				t.Fatalf("upstream must be called exactly once, got %d", calls)
			}
		})
	}
}

func TestCreateWebCallRequiresAgent(t *testing.T) {
	client, err := NewClient(Config{APIKey: "secret", BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = client.CreateWebCall(context.Background(), "")
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestCreateWebCallKeepsFloatSampleRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","sample_rate":24000.0,"call_id":"call_2"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, err := client.CreateWebCall(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("float sample_rate must decode: %v", err)
	}
	raw, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"access_token":"tok","sample_rate":24000.0}` {
		t.Fatalf("unexpected relayed body: %s", raw)
	}
}
