// Package status serves a read-only JSON view of the live reveal sessions.
package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"reveal-terminal/internal/sessions"
)

// Source is what the handler reads from.
type Source interface {
	List() []sessions.Entry
	Get(id string) (sessions.Entry, error)
	Stats() sessions.Stats
}

// Handler exposes the status routes.
type Handler struct {
	src     Source
	logger  *log.Logger
	version string
	started time.Time
}

// NewHandler returns a Handler reading from src.
func NewHandler(src Source, version string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{src: src, logger: logger, version: version, started: time.Now()}
}

// Routes returns the instrumented mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/sessions", h.listSessions)
	mux.HandleFunc("/sessions/", h.getSession)
	return h.instrument(mux)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		observer := &statusObserver{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(observer, r)
		h.logger.Info("status request",
			"event", "status_http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", observer.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

type statusObserver struct {
	http.ResponseWriter
	status int
}

func (o *statusObserver) WriteHeader(status int) {
	o.status = status
	o.ResponseWriter.WriteHeader(status)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	stats := h.src.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  h.version,
		"uptime_s": int64(time.Since(h.started).Seconds()),
		"sessions": stats,
	})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.src.List()})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		h.logger.Warn("status request rejected", "event", "status_request_rejected", "reason", "invalid_session_id", "path", r.URL.Path, "remote", r.RemoteAddr)
		writeErr(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid session id format")
		return
	}

	entry, err := h.src.Get(id)
	if err != nil {
		writeMappedErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeErr(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	return false
}

func writeMappedErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		writeErr(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session could not be found or already closed")
	case errors.Is(err, sessions.ErrInvalidRequest):
		writeErr(w, http.StatusBadRequest, "INVALID_REQUEST", "request uses disallowed values")
	default:
		writeErr(w, http.StatusInternalServerError, "INTERNAL_ERROR", "status endpoint internal error")
	}
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message, "status": strconv.Itoa(status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
