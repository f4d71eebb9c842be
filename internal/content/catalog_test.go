package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	var ids []narrative.SectionID
	for _, s := range c.Sections() {
		ids = append(ids, s.ID)
	}
	want := []narrative.SectionID{
		narrative.SectionHero, narrative.SectionProblem, narrative.SectionWhy, narrative.SectionIntent,
		narrative.SectionDiagnosis, narrative.SectionMemory, narrative.SectionPlanning, narrative.SectionExecution,
		narrative.SectionVerification, narrative.SectionCTA, narrative.SectionIteration, narrative.SectionOffer,
		narrative.SectionFinal,
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}
	if len(c.ProblemCards()) != narrative.CardCount {
		t.Fatalf("expected %d problem cards", narrative.CardCount)
	}
	cta, ok := c.Section(narrative.SectionCTA)
	if !ok || cta.Type != SectionTypeCTA {
		t.Fatalf("cta section missing or untyped: %+v", cta)
	}
	if len(c.Testimonials()) != 6 || len(c.CaseStudies()) != 3 || len(c.TechStack()) != 11 {
		t.Fatalf("unexpected social proof counts")
	}
}

func TestSectionsReturnsCopies(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, _ := c.Section(narrative.SectionDiagnosis)
	s.Bullets[0] = "mutated"
	again, _ := c.Section(narrative.SectionDiagnosis)
	if again.Bullets[0] != "Situation" {
		t.Fatalf("catalog must be read-only, got %q", again.Bullets[0])
	}
	if _, ok := c.Section(narrative.SectionTechStack); ok {
		t.Fatalf("tech stack has no authored section copy")
	}
}

func TestParseRejectsBadSections(t *testing.T) {
	cases := map[string]string{
		"unknown":   "sections:\n  - id: pricing\n",
		"duplicate": "sections:\n  - id: hero\n  - id: hero\n",
		"cards":     "problem_cards:\n  - title: one\n",
		"syntax":    "sections: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("sections:\n  - id: final\n    headline: Bye\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, ok := c.Section(narrative.SectionFinal)
	if !ok || s.Headline != "Bye" {
		t.Fatalf("unexpected section: %+v", s)
	}

	c, err = Load("")
	if err != nil || len(c.Sections()) == 0 {
		t.Fatalf("empty path should use the embedded catalog: %v", err)
	}
}

func TestRenderIcons(t *testing.T) {
	if got := Render("NoSuchIcon", 20); got != "" {
		t.Fatalf("unknown icon should render nothing, got %q", got)
	}
	got := string(Render("Activity", 20))
	if !strings.Contains(got, `width="20"`) || !strings.Contains(got, `data-icon="Activity"`) {
		t.Fatalf("unexpected svg: %s", got)
	}
	if !strings.Contains(string(Render("Check", 0)), `width="16"`) {
		t.Fatalf("zero size should fall back to the default")
	}

	c, err := Default()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, card := range c.ProblemCards() {
		if Render(card.Icon, 20) == "" {
			t.Fatalf("problem card icon %s missing", card.Icon)
		}
	}
	for _, tech := range c.TechStack() {
		if Render(tech.Icon, 18) == "" {
			t.Fatalf("tech icon %s missing", tech.Icon)
		}
	}
}

func TestIconNamesAllRender(t *testing.T) {
	names := IconNames()
	if len(names) == 0 {
		t.Fatalf("expected icons to be registered")
	}
	for i, name := range names {
		if i > 0 && names[i-1] >= name {
			t.Fatalf("icon names not sorted: %v", names)
		}
		if Render(name, 0) == "" {
			t.Fatalf("icon %s renders nothing", name)
		}
	}
}
