// Package gyst is a small client for the gystd HTTP API: visitor sessions,
// narrative frames and descriptors, the voice-call proxy and the engagement
// feed.
package gyst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with gystd.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// Card is the transform of one narrative card in a frame.
type Card struct {
	Role    string  `json:"role"`
	Y       float64 `json:"y"`
	Opacity float64 `json:"opacity"`
	Scale   float64 `json:"scale"`
}

// Frame is the pinned-section output for one scroll position.
type Frame struct {
	Progress   float64 `json:"progress"`
	Phase      int     `json:"phase"`
	Completed  bool    `json:"completed"`
	Percentage int     `json:"percentage"`
	Label      string  `json:"label"`
	Fill       float64 `json:"fill"`
	Pinned     bool    `json:"pinned"`
	Cards      []Card  `json:"cards"`
}

// FrameQuery selects the scroll position of a frame. A zero PinnedDistance
// uses the server default.
type FrameQuery struct {
	ScrollY        float64
	PinStart       float64
	PinnedDistance float64
}

// Session is a visitor's active-section state. Descriptor is kept raw so
// callers can decode only the fields they draw.
type Session struct {
	ID         string          `json:"id"`
	Section    string          `json:"section"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// Observation is one section geometry sample in viewport pixels.
type Observation struct {
	Section        string  `json:"section"`
	Top            float64 `json:"top"`
	Height         float64 `json:"height"`
	ViewportHeight float64 `json:"viewport_height"`
}

// WebCall carries what the browser needs to join a voice call.
type WebCall struct {
	AccessToken string  `json:"access_token"`
	SampleRate  float64 `json:"sample_rate"`
}

// Event is one recorded engagement event.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	SessionID  string    `json:"session_id,omitempty"`
	Section    string    `json:"section,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	Status     int       `json:"status,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventQuery filters the engagement feed.
type EventQuery struct {
	Limit     int
	Kinds     []string
	SessionID string
}

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("gyst api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for gystd. When httpClient is nil, a
// default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SetAccessToken sets the operator token sent to protected endpoints.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// AccessToken returns the currently stored token string.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// CreateSession starts a session. An empty initial section starts at hero.
func (c *Client) CreateSession(ctx context.Context, initial string) (Session, error) {
	var sess Session
	body := map[string]string{}
	if initial != "" {
		body["section"] = initial
	}
	err := c.send(ctx, http.MethodPost, "/api/v1/sessions", nil, body, &sess, false)
	return sess, err
}

// GetSession fetches the session's active section.
func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := c.send(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id), nil, nil, &sess, false)
	return sess, err
}

// Report overwrites the session's active section.
func (c *Client) Report(ctx context.Context, id, section string) (Session, error) {
	var sess Session
	err := c.send(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/report", nil,
		map[string]string{"section": section}, &sess, false)
	return sess, err
}

// Observe submits geometry samples; in-view sections are reported in order.
func (c *Client) Observe(ctx context.Context, id string, observations []Observation) (Session, error) {
	var sess Session
	if observations == nil {
		observations = []Observation{}
	}
	err := c.send(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/observations", nil,
		observations, &sess, false)
	return sess, err
}

// Frame computes the pinned-section frame for a scroll position.
func (c *Client) Frame(ctx context.Context, q FrameQuery) (Frame, error) {
	query := url.Values{}
	query.Set("scroll_y", formatFloat(q.ScrollY))
	query.Set("pin_start", formatFloat(q.PinStart))
	if q.PinnedDistance > 0 {
		query.Set("pinned_distance", formatFloat(q.PinnedDistance))
	}
	var frame Frame
	err := c.send(ctx, http.MethodGet, "/api/v1/narrative/frame", query, nil, &frame, false)
	return frame, err
}

// Descriptor returns the raw visual descriptor of a section.
func (c *Client) Descriptor(ctx context.Context, section string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.send(ctx, http.MethodGet, "/api/v1/narrative/visual", url.Values{"section": {section}}, nil, &raw, false)
	return raw, err
}

// CreateWebCall asks the proxy for a voice-call access token.
func (c *Client) CreateWebCall(ctx context.Context, agentID string) (WebCall, error) {
	var call WebCall
	err := c.send(ctx, http.MethodPost, "/api/create-retell-call", nil,
		map[string]string{"agent_id": agentID}, &call, false)
	return call, err
}

// Events lists recent engagement events. The stored access token is sent
// when set.
func (c *Client) Events(ctx context.Context, q EventQuery) ([]Event, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.Kinds) > 0 {
		query.Set("kind", strings.Join(q.Kinds, ","))
	}
	if q.SessionID != "" {
		query.Set("session_id", q.SessionID)
	}
	var out struct {
		Events []Event `json:"events"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/v1/engagement", query, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, payload, out any, withAuth bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint), RawQuery: query.Encode()}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		if token := c.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
