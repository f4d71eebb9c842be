package api

import (
	"encoding/json"
	"io"
	"net/http"

	xerrors "GYST-Loop/internal/errors"
	"GYST-Loop/internal/narrative"
	"GYST-Loop/internal/session"
)

type sessionResponse struct {
	ID         string               `json:"id"`
	Section    narrative.SectionID  `json:"section"`
	Descriptor narrative.Descriptor `json:"descriptor"`
}

func newSessionResponse(sess session.Session) sessionResponse {
	return sessionResponse{ID: sess.ID, Section: sess.Section, Descriptor: narrative.DescriptorFor(sess.Section)}
}

type reportRequest struct {
	Section string `json:"section"`
}

type observationRequest struct {
	Section        string  `json:"section"`
	Top            float64 `json:"top"`
	Height         float64 `json:"height"`
	ViewportHeight float64 `json:"viewport_height"`
}

func (s *Server) sessionsReady(w http.ResponseWriter) bool {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions not configured")
		return false
	}
	return true
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if !s.sessionsReady(w) {
		return
	}
	var req reportRequest
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	sess, err := s.deps.Sessions.Create(r.Context(), req.Section)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if !s.sessionsReady(w) {
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleSessionReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if !s.sessionsReady(w) {
		return
	}
	var req reportRequest
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	sess, err := s.deps.Sessions.Report(r.Context(), r.PathValue("id"), req.Section)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleSessionObservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	if !s.sessionsReady(w) {
		return
	}
	var req []observationRequest
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	observations := make([]session.Observation, 0, len(req))
	for _, o := range req {
		observations = append(observations, session.Observation{
			Section:  o.Section,
			Geometry: narrative.Geometry{Top: o.Top, Height: o.Height, ViewportHeight: o.ViewportHeight},
		})
	}
	sess, err := s.deps.Sessions.Observe(r.Context(), r.PathValue("id"), observations)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// decodeOptionalJSON 解码请求体，空请求体保持 dst 的零值。
func decodeOptionalJSON(body io.Reader, dst any) error {
	if body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(dst)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, msgInvalidJSON)
	}
	return nil
}
