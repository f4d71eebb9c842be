package narrative

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestDescriptorTable(t *testing.T) {
	var hiddenMarkers, spinning []SectionID
	for _, id := range Sections() {
		d := DescriptorFor(id)
		if !d.Marker.Visible {
			hiddenMarkers = append(hiddenMarkers, id)
		}
		if d.Rotation.Continuous {
			spinning = append(spinning, id)
		}
		wantStroke := strokeDefault
		if id == SectionProblem {
			wantStroke = strokeAlert
		}
		if d.Stroke != wantStroke {
			t.Fatalf("%s: unexpected stroke %s", id, d.Stroke)
		}
	}
	if diff := cmp.Diff([]SectionID{SectionHero, SectionWhy, SectionFinal}, hiddenMarkers); diff != "" {
		t.Fatalf("hidden markers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]SectionID{SectionExecution, SectionIteration}, spinning); diff != "" {
		t.Fatalf("spinning sections (-want +got):\n%s", diff)
	}
	if DescriptorFor(SectionIteration).Rotation.Period >= DescriptorFor(SectionExecution).Rotation.Period {
		t.Fatalf("iteration should spin faster than execution")
	}
	if got := DescriptorFor(SectionDiagnosis).Dash; got != (Dash{Arc: 180, Gap: 580}) {
		t.Fatalf("unexpected diagnosis dash %+v", got)
	}
	if got := DescriptorFor(SectionOffer).Dash; got != (Dash{Arc: RingCircumference}) {
		t.Fatalf("offer should draw a full ring, got %+v", got)
	}
}

func TestUnknownSectionFallsBackToNeutral(t *testing.T) {
	if diff := cmp.Diff(NeutralDescriptor(), DescriptorFor("ghost")); diff != "" {
		t.Fatalf("unexpected descriptor (-want +got):\n%s", diff)
	}
	d := NeutralDescriptor()
	if d.Marker.Visible || d.Label.Text != "" || d.Rotation.Continuous || d.Dash.Arc != 0 {
		t.Fatalf("neutral descriptor should be an empty static ring: %+v", d)
	}
}

func TestAnimatorInterpolatesDash(t *testing.T) {
	clock := newFakeClock()
	a := NewAnimator(DescriptorFor(SectionProblem), clock.Now())
	if got := a.Sample(clock.Now()).Dash; got != (Dash{Arc: 10, Gap: 40}) {
		t.Fatalf("initial state should not animate, got %+v", got)
	}

	a.Retarget(DescriptorFor(SectionMemory), clock.Now())
	if got := a.Sample(clock.Now()).Dash; got != (Dash{Arc: 10, Gap: 40}) {
		t.Fatalf("transition should start from the current dash, got %+v", got)
	}

	clock.Advance(TransitionDuration / 2)
	mid := a.Sample(clock.Now()).Dash
	if mid.Arc <= 10 || mid.Arc >= 360 {
		t.Fatalf("mid transition arc out of range: %v", mid.Arc)
	}

	clock.Advance(TransitionDuration)
	end := a.Sample(clock.Now())
	if diff := cmp.Diff(Dash{Arc: 360, Gap: 400}, end.Dash, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("final dash mismatch (-want +got):\n%s", diff)
	}
	if end.Stroke != strokeDefault || end.Angle != 0 {
		t.Fatalf("unexpected final appearance: %+v", end)
	}
}

func TestAnimatorSpins(t *testing.T) {
	clock := newFakeClock()
	a := NewAnimator(DescriptorFor(SectionIteration), clock.Now())
	clock.Advance(1500 * time.Millisecond)
	got := a.Sample(clock.Now()).Angle
	// 初始时刻已经过 TransitionDuration，共计 2.3s，周期 6s。
	want := 360 * 2.3 / 6
	if !cmp.Equal(got, want, cmpopts.EquateApprox(0, 1e-6)) {
		t.Fatalf("angle = %v, want %v", got, want)
	}
}

func TestStandardEaseEndpoints(t *testing.T) {
	if standardEase.At(0) != 0 || standardEase.At(1) != 1 {
		t.Fatalf("ease must pin endpoints")
	}
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := standardEase.At(float64(i) / 100)
		if v < prev-1e-9 {
			t.Fatalf("ease is not monotonic at %d", i)
		}
		prev = v
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestVisualizerDelayedLabel(t *testing.T) {
	registry := NewRegistry(SectionHero)
	v := NewVisualizer(registry)
	defer v.Close()

	registry.Report(SectionWhy)
	if v.LabelVisible() {
		t.Fatalf("label should wait for its delay")
	}
	waitFor(t, v.LabelVisible)
	if a := v.Appearance(); !a.LabelVisible || a.Label.Text != "WHY?" {
		t.Fatalf("unexpected appearance: %+v", a)
	}

	registry.Report(SectionIntent)
	if v.LabelVisible() {
		t.Fatalf("label must be removed immediately on deactivation")
	}
	if v.Section() != SectionIntent {
		t.Fatalf("visualizer should follow the registry")
	}
}

func TestVisualizerCancelsPendingLabel(t *testing.T) {
	registry := NewRegistry(SectionHero)
	v := NewVisualizer(registry)
	defer v.Close()

	registry.Report(SectionWhy)
	registry.Report(SectionIntent)
	time.Sleep(450 * time.Millisecond)
	if v.LabelVisible() {
		t.Fatalf("stale label timer fired after deactivation")
	}
}

func TestVisualizerCloseStopsUpdates(t *testing.T) {
	registry := NewRegistry(SectionHero)
	v := NewVisualizer(registry)
	registry.Report(SectionWhy)
	v.Close()
	v.Close()

	registry.Report(SectionMemory)
	if v.Section() != SectionWhy {
		t.Fatalf("closed visualizer should ignore reports, got %s", v.Section())
	}
	time.Sleep(400 * time.Millisecond)
	if v.LabelVisible() {
		t.Fatalf("closed visualizer should not show the label")
	}
}
