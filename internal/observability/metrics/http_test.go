package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRenderIncludesRequestsAndEvents(t *testing.T) {
	c := newCollector()
	c.observe("proxy", http.MethodPost, http.StatusBadGateway, 30*time.Millisecond)
	c.observe("proxy", http.MethodPost, http.StatusOK, 20*time.Second)
	c.events.inc("call_created")
	c.events.inc("call_created")
	c.transitions.inc("hero", "problem")

	out := c.render()
	for _, want := range []string{
		`gyst_http_requests_total{handler="proxy",method="POST",code="502"} 1`,
		`gyst_http_request_errors_total{handler="proxy",method="POST"} 1`,
		`gyst_http_request_duration_seconds_bucket{handler="proxy",method="POST",le="0.05"} 1`,
		`gyst_http_request_duration_seconds_bucket{handler="proxy",method="POST",le="+Inf"} 2`,
		`gyst_engagement_events_total{kind="call_created"} 2`,
		`gyst_section_transitions_total{from="hero",to="problem"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	h := Middleware("test_teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `handler="test_teapot",method="GET",code="418"`) {
		t.Fatalf("middleware did not record status:\n%s", rec.Body.String())
	}
}

func TestEscape(t *testing.T) {
	if got := escape("a\"b\\c\n"); got != `a\"b\\c` {
		t.Fatalf("unexpected escape: %q", got)
	}
}
