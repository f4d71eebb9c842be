package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gyst.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"narrative":{"timeline_path":"timeline.yaml"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
	if cfg.Narrative.PinnedDistance != 3000 || cfg.Narrative.CompletionThreshold != 0.85 {
		t.Fatalf("unexpected narrative defaults: %+v", cfg.Narrative)
	}
	if want := filepath.Join(filepath.Dir(path), "timeline.yaml"); cfg.Narrative.TimelinePath != want {
		t.Fatalf("expected timeline path %q, got %q", want, cfg.Narrative.TimelinePath)
	}
	if cfg.Engagement.SaveAttempts != 3 || cfg.Engagement.RetryBackoffMS != 200 {
		t.Fatalf("unexpected engagement retry defaults: %+v", cfg.Engagement)
	}
	if cfg.Session.Driver != "memory" || cfg.SessionTTL() != 30*time.Minute {
		t.Fatalf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Retell.APIKeyEnv != "RETELL_API_KEY" || cfg.RetellTimeout() != 15*time.Second {
		t.Fatalf("unexpected retell defaults: %+v", cfg.Retell)
	}
}

func TestLoadRejectsInvalidDrivers(t *testing.T) {
	path := writeConfig(t, `{
		"session": {"driver": "redis"},
		"engagement": {"queue": {"driver": "kafka"}, "store": {"driver": "mysql"}},
		"narrative": {"completion_threshold": 1.5}
	}`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, fragment := range []string{"session.redis.address", "kafka", "engagement.store.dsn", "completion_threshold"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error %v", fragment, err)
		}
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestRetellAPIKeyPrefersExplicitValue(t *testing.T) {
	t.Setenv("GYST_TEST_RETELL_KEY", "from-env")
	cfg := Default()
	cfg.Retell.APIKeyEnv = "GYST_TEST_RETELL_KEY"
	if got := cfg.RetellAPIKey(); got != "from-env" {
		t.Fatalf("expected env key, got %q", got)
	}
	cfg.Retell.APIKey = "explicit"
	if got := cfg.RetellAPIKey(); got != "explicit" {
		t.Fatalf("expected explicit key, got %q", got)
	}
}
