package api

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"GYST-Loop/internal/narrative"
)

// handleFrame 计算置顶区块在给定滚动位置的帧。
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	scrollY, err := floatParam(query, "scroll_y", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pinStart, err := floatParam(query, "pin_start", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	distance, err := floatParam(query, "pinned_distance", s.deps.PinnedDistance)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if distance <= 0 {
		writeError(w, http.StatusBadRequest, "pinned_distance must be positive")
		return
	}
	writeJSON(w, http.StatusOK, narrative.ComputeFrame(scrollY, pinStart, distance, s.deps.Timeline))
}

// handleVisual 返回区块对应的可视化外观，未知区块返回中性外观。
func (s *Server) handleVisual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}
	section := narrative.SectionID(r.URL.Query().Get("section"))
	writeJSON(w, http.StatusOK, narrative.DescriptorFor(section))
}

func floatParam(query url.Values, name string, fallback float64) (float64, error) {
	raw := query.Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s must be a finite number", name)
	}
	return value, nil
}
