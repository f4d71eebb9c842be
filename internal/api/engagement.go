package api

import (
	"net/http"
	"strconv"

	"GYST-Loop/internal/engagement"
)

// handleEngagement 返回最近的互动事件，支持 limit、kind 与 session_id 过滤。
func (s *Server) handleEngagement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if s.deps.Events == nil {
		writeError(w, http.StatusServiceUnavailable, "engagement store not configured")
		return
	}

	query := r.URL.Query()
	opts := engagement.ListOptions{SessionID: query.Get("session_id")}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}
	kinds, err := engagement.ParseKinds(query.Get("kind"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	opts.Kinds = kinds

	events, err := s.deps.Events.List(r.Context(), opts)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if events == nil {
		events = []engagement.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
