package auth

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"GYST-Loop/pkg/logger"
)

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(Config{Mode: ModeToken}); err == nil {
		t.Fatalf("expected error without tokens")
	}
	if _, err := NewService(Config{Mode: "oauth"}); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
	svc, err := NewService(Config{})
	if err != nil {
		t.Fatalf("disabled mode: %v", err)
	}
	if svc.Mode() != ModeDisabled {
		t.Fatalf("expected disabled mode, got %s", svc.Mode())
	}
}

func TestAuthenticateRequest(t *testing.T) {
	svc, err := NewService(Config{Mode: "Token", Tokens: []TokenConfig{{Name: "ops", Token: "s3cret"}}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	cases := []struct {
		header string
		want   error
	}{
		{"", ErrMissingToken},
		{"Basic abc", ErrMissingToken},
		{"Bearer ", ErrMissingToken},
		{"Bearer wrong", ErrInvalidToken},
		{"bearer s3cret", nil},
	}
	for _, tc := range cases {
		op, err := svc.AuthenticateRequest(context.Background(), tc.header)
		if err != tc.want {
			t.Fatalf("header %q: expected %v, got %v", tc.header, tc.want, err)
		}
		if tc.want == nil && op.Name != "ops" {
			t.Fatalf("unexpected operator %+v", op)
		}
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, slog.LevelInfo)

	svc, err := NewService(Config{Mode: ModeToken, Tokens: []TokenConfig{{Name: "ops", Token: "s3cret"}}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	var seen string
	handler := svc.Middleware(MiddlewareConfig{AuditEvent: "engagement_list"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if op := OperatorFromContext(r.Context()); op != nil {
			seen = op.Name
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/engagement", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/engagement", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot || seen != "ops" {
		t.Fatalf("expected pass-through with operator, got %d %q", rec.Code, seen)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"msg":"access_denied"`) || !strings.Contains(logs, `"event":"engagement_list"`) {
		t.Fatalf("missing audit lines:\n%s", logs)
	}
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	var svc *Service
	handler := svc.Middleware(MiddlewareConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}
