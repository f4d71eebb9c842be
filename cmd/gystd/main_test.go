package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"GYST-Loop/internal/narrative"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("GYST_CONFIG", "")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("gystd %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestFrameCommand(t *testing.T) {
	out := execute(t, "frame", "--scroll-y", "2500", "--pin-start", "1000")
	var got narrative.Frame
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode frame: %v\n%s", err, out)
	}
	want := narrative.ComputeFrame(2500, 1000, narrative.DefaultPinnedDistance, narrative.DefaultTimeline())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestSimulateCommand(t *testing.T) {
	out := execute(t, "simulate", "--viewport", "1000", "--step", "500", "--json")
	var snapshots []narrative.Snapshot
	if err := json.Unmarshal([]byte(out), &snapshots); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	if len(snapshots) == 0 {
		t.Fatalf("expected snapshots")
	}
	if snapshots[0].Active != narrative.SectionHero {
		t.Fatalf("expected hero at top, got %s", snapshots[0].Active)
	}
	seen := map[narrative.SectionID]bool{}
	for _, s := range snapshots {
		seen[s.Active] = true
	}
	if !seen[narrative.SectionProblem] {
		t.Fatalf("problem never became active")
	}
	if last := snapshots[len(snapshots)-1]; !last.Frame.Completed {
		t.Fatalf("expected completed frame at the bottom of the page")
	}
}

func TestSimulateTable(t *testing.T) {
	out := execute(t, "simulate", "--viewport", "1000", "--step", "1000")
	if !strings.HasPrefix(out, "SCROLL") || !strings.Contains(out, "hero") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gyst.json")
	if err := os.WriteFile(path, []byte(`{"server":{"address":":9999"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("GYST_CONFIG", path)
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("expected env config, got %q", cfg.Server.Address)
	}

	if _, err := loadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}

	t.Setenv("GYST_CONFIG", "")
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address, got %q", cfg.Server.Address)
	}
}

func TestBuildRuntimeWithMemoryDrivers(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Retell.APIKeyEnv = "GYST_TEST_UNSET_KEY"
	rt, err := buildRuntime(t.Context(), cfg)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.close()
	if rt.server == nil || rt.processor == nil {
		t.Fatalf("runtime incomplete: %+v", rt)
	}
}
