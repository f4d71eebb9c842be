package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestMemoryStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	if _, err := store.Create(ctx, "s1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	prev, err := store.Report(ctx, "s1", narrative.SectionProblem)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if prev != narrative.SectionHero {
		t.Fatalf("unexpected previous section: %s", prev)
	}
	if _, err := store.Report(ctx, "s1", narrative.SectionWhy); err != nil {
		t.Fatalf("report: %v", err)
	}
	sess, err := store.Current(ctx, "s1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if sess.Section != narrative.SectionWhy {
		t.Fatalf("expected why, got %s", sess.Section)
	}
}

func TestMemoryStoreExpiresSessions(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore(time.Minute, WithMemoryClock(clock.Now))
	if _, err := store.Create(ctx, "s1", narrative.SectionHero); err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.now = clock.now.Add(50 * time.Second)
	if _, err := store.Report(ctx, "s1", narrative.SectionProblem); err != nil {
		t.Fatalf("report renews ttl: %v", err)
	}
	clock.now = clock.now.Add(50 * time.Second)
	if _, err := store.Current(ctx, "s1"); err != nil {
		t.Fatalf("session should still be alive: %v", err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	_, err := store.Current(ctx, "s1")
	if !errors.Is(err, ErrNotFound) || xerrors.CodeOf(err) != xerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired session to be swept")
	}
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore(0)
	if _, err := store.Report(context.Background(), "missing", narrative.SectionWhy); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if got := redisKey("abc"); got != "gyst:session:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestMemoryStoreMarkVisibilityReturnsRisingEdges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	if _, err := store.Create(ctx, "s1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	steps := []struct {
		updates []VisibilityUpdate
		want    []narrative.SectionID
	}{
		{[]VisibilityUpdate{{narrative.SectionProblem, true}, {narrative.SectionWhy, true}}, []narrative.SectionID{narrative.SectionProblem, narrative.SectionWhy}},
		{[]VisibilityUpdate{{narrative.SectionProblem, true}, {narrative.SectionWhy, true}}, nil},
		{[]VisibilityUpdate{{narrative.SectionWhy, false}}, nil},
		{[]VisibilityUpdate{{narrative.SectionProblem, true}, {narrative.SectionWhy, true}}, []narrative.SectionID{narrative.SectionWhy}},
	}
	for i, step := range steps {
		got, err := store.MarkVisibility(ctx, "s1", step.updates)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if diff := cmp.Diff(step.want, got); diff != "" {
			t.Fatalf("step %d rising mismatch (-want +got):\n%s", i, diff)
		}
	}
	if _, err := store.MarkVisibility(ctx, "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVisibilityArgs(t *testing.T) {
	args := visibilityArgs([]VisibilityUpdate{{narrative.SectionWhy, true}, {narrative.SectionHero, false}}, 2*time.Second)
	want := []any{"why", "1", "hero", "0", int64(2000)}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if viewKey("abc") != "gyst:session:abc:view" {
		t.Fatalf("unexpected view key %q", viewKey("abc"))
	}
}
