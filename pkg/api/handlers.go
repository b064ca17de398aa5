package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-zerotrust/pkg/attack"
	"github.com/dd0wney/cluso-zerotrust/pkg/engine"
	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
)

// Bounds on the audit recency query
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, s.engine.Topology())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// An absent body means the default model
	var req AttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ack, err := s.engine.StartAttack(req.Model)
	if err != nil {
		switch {
		case errors.Is(err, attack.ErrUnknownModel):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrAttackInProgress):
			s.respondError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("attack start failed", logging.Error(err))
			s.respondError(w, http.StatusInternalServerError, "Could not start attack simulation")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, ack)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, s.engine.StartActivity())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, s.engine.Reset())
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	recent := s.engine.Trail().GetRecentEvents(limit)
	s.respondJSON(w, http.StatusOK, AuditRecentResponse{
		Events: recent,
		Count:  len(recent),
	})
}

// Helper methods

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	s.respondJSON(w, status, response)
}
