// Package metrics keeps the in-process counters served on /metrics in the
// Prometheus text exposition format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const labelSep = "\x00"

var latencyBuckets = []float64{0.005, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// counterVec is a counter family keyed by the joined label values.
type counterVec struct {
	name   string
	help   string
	labels []string
	values map[string]uint64
}

func newCounterVec(name, help string, labels ...string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]uint64)}
}

func (v *counterVec) inc(values ...string) {
	v.values[strings.Join(values, labelSep)]++
}

func (v *counterVec) writeTo(w io.Writer) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", v.name, v.help, v.name)
	for _, key := range sortedKeys(v.values) {
		fmt.Fprintf(w, "%s%s %d\n", v.name, labelSet(v.labels, key), v.values[key])
	}
}

type histogram struct {
	counts []uint64
	sum    float64
	count  uint64
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	// Values above the last bound only land in the +Inf bucket, which is count.
	for i, bound := range latencyBuckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

type histogramVec struct {
	name   string
	help   string
	labels []string
	values map[string]*histogram
}

func newHistogramVec(name, help string, labels ...string) *histogramVec {
	return &histogramVec{name: name, help: help, labels: labels, values: make(map[string]*histogram)}
}

func (v *histogramVec) observe(value float64, values ...string) {
	key := strings.Join(values, labelSep)
	h := v.values[key]
	if h == nil {
		h = &histogram{counts: make([]uint64, len(latencyBuckets))}
		v.values[key] = h
	}
	h.observe(value)
}

func (v *histogramVec) writeTo(w io.Writer) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", v.name, v.help, v.name)
	for _, key := range sortedKeys(v.values) {
		h := v.values[key]
		base := labelPairs(v.labels, key)
		for i, bound := range latencyBuckets {
			fmt.Fprintf(w, "%s_bucket{%s} %d\n", v.name, joinPairs(base, `le="`+formatFloat(bound)+`"`), h.counts[i])
		}
		fmt.Fprintf(w, "%s_bucket{%s} %d\n", v.name, joinPairs(base, `le="+Inf"`), h.count)
		fmt.Fprintf(w, "%s_sum%s %s\n", v.name, labelSet(v.labels, key), formatFloat(h.sum))
		fmt.Fprintf(w, "%s_count%s %d\n", v.name, labelSet(v.labels, key), h.count)
	}
}

type collector struct {
	mu          sync.Mutex
	requests    *counterVec
	serverErrs  *counterVec
	latency     *histogramVec
	events      *counterVec
	transitions *counterVec
}

func newCollector() *collector {
	return &collector{
		requests:    newCounterVec("gyst_http_requests_total", "Total number of HTTP requests processed.", "handler", "method", "code"),
		serverErrs:  newCounterVec("gyst_http_request_errors_total", "Total number of HTTP requests that resulted in a server error.", "handler", "method"),
		latency:     newHistogramVec("gyst_http_request_duration_seconds", "HTTP request duration in seconds.", "handler", "method"),
		events:      newCounterVec("gyst_engagement_events_total", "Engagement events recorded, by kind.", "kind"),
		transitions: newCounterVec("gyst_section_transitions_total", "Active section changes reported by visitor sessions.", "from", "to"),
	}
}

var defaultCollector = newCollector()

// IncEvent counts one recorded engagement event of the given kind.
func IncEvent(kind string) {
	defaultCollector.mu.Lock()
	defaultCollector.events.inc(kind)
	defaultCollector.mu.Unlock()
}

// ObserveSectionChange counts one change of a session's active section.
func ObserveSectionChange(from, to string) {
	defaultCollector.mu.Lock()
	defaultCollector.transitions.inc(from, to)
	defaultCollector.mu.Unlock()
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	defaultCollector.observe(handler, method, status, duration)
}

func (c *collector) observe(handler, method string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests.inc(handler, method, strconv.Itoa(status))
	if status >= http.StatusInternalServerError {
		c.serverErrs.inc(handler, method)
	}
	c.latency.observe(duration.Seconds(), handler, method)
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.Grow(2048)
	c.requests.writeTo(&b)
	c.serverErrs.writeTo(&b)
	c.latency.writeTo(&b)
	c.events.writeTo(&b)
	c.transitions.writeTo(&b)
	return b.String()
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = io.WriteString(w, defaultCollector.render())
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelPairs(names []string, key string) []string {
	values := strings.Split(key, labelSep)
	pairs := make([]string, 0, len(names))
	for i, name := range names {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		pairs = append(pairs, name+`="`+escape(value)+`"`)
	}
	return pairs
}

func labelSet(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	return "{" + strings.Join(labelPairs(names, key), ",") + "}"
}

func joinPairs(pairs []string, extra string) string {
	return strings.Join(append(append([]string(nil), pairs...), extra), ",")
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// StartServer serves /metrics on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
