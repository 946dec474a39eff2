package http

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"usage":         s.limiter.Stats(),
		"top_violators": s.limiter.TopViolators(10),
	})
}

type identityRequest struct {
	Identity string `json:"identity"`
}

func (s *Server) handleAdminUnblock(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "identity is required")
		return
	}

	unblocked := s.limiter.Unblock(req.Identity)
	s.metrics.BlockedIdentities.Set(float64(s.limiter.Stats().BlockedIdentities))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"identity":  req.Identity,
		"unblocked": unblocked,
	})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "identity is required")
		return
	}

	existed := s.limiter.Reset(req.Identity)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"identity": req.Identity,
		"reset":    existed,
	})
}
