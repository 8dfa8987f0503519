package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}

	// The lock backend is advisory; losing it degrades but does not
	// block readiness.
	lockStatus := "disabled"
	if s.lock != nil {
		lockStatus = "ok"
		if err := s.lock.Ping(r.Context()); err != nil {
			lockStatus = "unavailable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "lock": lockStatus})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

type triggerRefreshRequest struct {
	Domains []domain.DataDomain `json:"domains"`
}

func (s *Server) handleTriggerRefresh(w http.ResponseWriter, r *http.Request) {
	var req triggerRefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	err := s.refreshService.Trigger(r.Context(), req.Domains)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRefreshInProgress):
			writeError(w, http.StatusConflict, "refresh already in progress")
		case errors.Is(err, domain.ErrBadRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("failed to trigger refresh", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to trigger refresh")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

type refreshStatusResponse struct {
	*domain.RefreshStatusSnapshot
	DataAge domain.DataAge `json:"data_age"`
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	snap, age := s.refreshService.Status(r.Context())
	writeJSON(w, http.StatusOK, refreshStatusResponse{
		RefreshStatusSnapshot: snap,
		DataAge:               age,
	})
}

type cleanupRequest struct {
	RetentionDays int `json:"retention_days"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.RetentionDays < 0 {
		writeError(w, http.StatusBadRequest, "retention_days must not be negative")
		return
	}

	deleted, err := s.refreshService.Cleanup(r.Context(), req.RetentionDays)
	if err != nil {
		s.logger.Error("cleanup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rows_deleted": deleted})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
