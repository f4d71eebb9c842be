package narrative

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sinkFunc func(SectionID)

func (f sinkFunc) Report(id SectionID) { f(id) }

func TestObserverFor(t *testing.T) {
	if spec, ok := ObserverFor(SectionHero); !ok || spec != HeroObserver {
		t.Fatalf("hero should use hero observer")
	}
	if spec, ok := ObserverFor(SectionProblem); !ok || spec != PinnedObserver {
		t.Fatalf("problem should use pinned observer")
	}
	if spec, ok := ObserverFor(SectionVerification); !ok || spec != StandardObserver {
		t.Fatalf("verification should use standard observer")
	}
	if _, ok := ObserverFor(SectionTechStack); ok {
		t.Fatalf("tech stack does not report")
	}
	if _, ok := ObserverFor("bogus"); ok {
		t.Fatalf("unknown section does not report")
	}
}

func TestInView(t *testing.T) {
	vh := 1000.0
	cases := []struct {
		name string
		g    Geometry
		spec ObserverSpec
		want bool
	}{
		{"standard centered", Geometry{Top: 0, Height: vh, ViewportHeight: vh}, StandardObserver, true},
		{"standard below band", Geometry{Top: 600, Height: vh, ViewportHeight: vh}, StandardObserver, false},
		{"standard edge of band", Geometry{Top: 599, Height: vh, ViewportHeight: vh}, StandardObserver, true},
		{"hero above band", Geometry{Top: -800, Height: vh, ViewportHeight: vh}, HeroObserver, false},
		{"hero partially", Geometry{Top: -700, Height: vh, ViewportHeight: vh}, HeroObserver, true},
		{"pinned below threshold", Geometry{Top: 950, Height: vh, ViewportHeight: vh}, PinnedObserver, false},
		{"pinned at threshold", Geometry{Top: 900, Height: vh, ViewportHeight: vh}, PinnedObserver, true},
		{"empty viewport", Geometry{Top: 0, Height: vh}, StandardObserver, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InView(tc.g, tc.spec); got != tc.want {
				t.Fatalf("InView = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReporterRisingEdge(t *testing.T) {
	layout := NewLayout([]SectionID{SectionHero, SectionWhy, SectionIntent}, 1000, 0)
	vp := NewViewport(layout)

	var reports []SectionID
	sink := sinkFunc(func(id SectionID) { reports = append(reports, id) })

	r := NewReporter(SectionWhy, StandardObserver, vp.Emitter(SectionWhy), sink)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(); err == nil {
		t.Fatalf("second start should fail")
	}

	for _, y := range []float64{0, 500, 900, 1000, 1100, 2000, 1000} {
		vp.ScrollTo(y)
	}
	// 500 进入观察带；900..1100 保持可见不重复上报；2000 离开后回到 1000 再次上报。
	want := []SectionID{SectionWhy, SectionWhy}
	if diff := cmp.Diff(want, reports); diff != "" {
		t.Fatalf("unexpected reports (-want +got):\n%s", diff)
	}

	r.Stop()
	r.Stop()
	if vp.Watching() != 0 {
		t.Fatalf("emitter should be released on stop")
	}
	vp.ScrollTo(2000)
	vp.ScrollTo(1000)
	if len(reports) != 2 {
		t.Fatalf("no reports expected after stop, got %v", reports)
	}
}

func TestReporterRequiresDependencies(t *testing.T) {
	if err := NewReporter(SectionWhy, StandardObserver, nil, nil).Start(); err == nil {
		t.Fatalf("expected error without emitter")
	}
}

func TestLayoutPinnedGeometry(t *testing.T) {
	layout := NewLayout(PageOrder, 1000, 3000)
	start, ok := layout.PinStart(SectionProblem)
	if !ok || start != 2000 {
		t.Fatalf("unexpected pin start %v %v", start, ok)
	}
	for _, y := range []float64{2000, 3500, 5000} {
		g, _ := layout.Geometry(SectionProblem, y)
		if g.Top != 0 {
			t.Fatalf("problem should stay pinned at %v, top=%v", y, g.Top)
		}
	}
	g, _ := layout.Geometry(SectionProblem, 5500)
	if g.Top != -500 {
		t.Fatalf("problem should scroll away after release, top=%v", g.Top)
	}
	why, _ := layout.PinStart(SectionWhy)
	if why != 6000 {
		t.Fatalf("sections after the pinned one shift by the pinned distance, got %v", why)
	}

	layout.relayout(800)
	start, _ = layout.PinStart(SectionProblem)
	if start != 1600 {
		t.Fatalf("pin start must follow the new viewport height, got %v", start)
	}
}
