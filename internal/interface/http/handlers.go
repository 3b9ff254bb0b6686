package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/stillmind/stillmind-hub/internal/application/command"
	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
	"github.com/stillmind/stillmind-hub/internal/interface/http/handlers"
)

// FIDHeader carries the caller's identity. The frame host injects it; the
// service trusts it as provided.
const FIDHeader = "X-Farcaster-FID"

// maxBodyBytes caps request bodies; every payload here is tiny.
const maxBodyBytes = 64 << 10

// ══════════════════════════════════════════════════════════════════════════════
// MEDITATION ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStats handles GET /api/v1/meditation/stats.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	fid := r.Header.Get(FIDHeader)

	stats, err := s.deps.GetStats.Handle(r.Context(), fid)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleCompleteSession handles POST /api/v1/meditation/complete.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	fid := r.Header.Get(FIDHeader)

	stats, err := s.deps.RecordSession.Handle(r.Context(), fid)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// historyResponse is the wire shape of GET /api/v1/meditation/history.
type historyResponse struct {
	FID      string      `json:"fid"`
	Sessions interface{} `json:"sessions"`
}

// handleGetHistory handles GET /api/v1/meditation/history.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetHistory == nil || !s.deps.GetHistory.Enabled() {
		writeJSONError(w, http.StatusNotFound, "history_disabled", "Session history is not enabled on this deployment")
		return
	}

	fid := r.Header.Get(FIDHeader)
	limit := getQueryParamInt(r, "limit", 30)

	entries, err := s.deps.GetHistory.Handle(r.Context(), fid, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{FID: fid, Sessions: entries})
}

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetReminder handles GET /api/v1/reminder.
func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	fid := r.Header.Get(FIDHeader)

	pref, err := s.deps.GetReminder.Handle(r.Context(), fid)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// setReminderRequest is the wire shape of POST /api/v1/reminder.
// Enabled is a pointer so a missing or non-boolean field is rejected rather
// than defaulting to false.
type setReminderRequest struct {
	Enabled *bool  `json:"enabled"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

// handleSetReminder handles POST /api/v1/reminder.
func (s *Server) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	fid := r.Header.Get(FIDHeader)

	var req setReminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "Request body must be JSON with a boolean enabled field")
		return
	}
	if req.Enabled == nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "enabled is required and must be a boolean")
		return
	}

	pref, err := s.deps.SetReminder.Handle(r.Context(), command.SetReminderCommand{
		FID:     fid,
		Enabled: *req.Enabled,
		Token:   req.Token,
		URL:     req.URL,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pref)
}

// dispatchResponse is the wire shape of GET /api/v1/cron/daily-reminder.
type dispatchResponse struct {
	Success bool `json:"success"`
	*reminder.DispatchResult
}

// handleDispatchReminders handles GET /api/v1/cron/daily-reminder.
//
// Per-user failures still produce a 200 with the failures listed; only a
// run that could not start at all is an error status.
func (s *Server) handleDispatchReminders(w http.ResponseWriter, r *http.Request) {
	if !handlers.BearerAuthorized(r, s.config.CronSecret) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid bearer token")
		return
	}

	result, err := s.deps.Dispatcher.Dispatch(r.Context())
	if err != nil {
		s.logger.Error("reminder dispatch aborted", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "dispatch_failed", "Reminder dispatch could not run")
		return
	}

	writeJSON(w, http.StatusOK, dispatchResponse{Success: true, DispatchResult: result})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) healthChecker() handlers.HealthChecker {
	if s.deps.HealthChecker != nil {
		return s.deps.HealthChecker
	}
	return handlers.NewNoopHealthChecker()
}

// handleHealth handles GET /health and GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.healthChecker().Check(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady handles GET /ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.healthChecker().Check(r.Context())

	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}

// handleLive handles GET /live.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alive":     true,
		"timestamp": time.Now().UTC(),
	})
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Route not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "stillmind-hub",
		"status":  "running",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrMissingFID):
		writeJSONError(w, http.StatusBadRequest, "missing_identifier", "X-Farcaster-FID header is required")
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Not authorized")
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Not found")
	case shared.IsStoreUnavailable(err):
		s.logger.Error("store unavailable",
			"path", r.URL.Path,
			"error", err,
			"request_id", getRequestID(r.Context()),
		)
		writeJSONError(w, http.StatusInternalServerError, "store_unavailable", "Storage backend unavailable")
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", getRequestID(r.Context()),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeJSON decodes a capped JSON body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
