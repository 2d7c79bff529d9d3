// Package httpapi exposes the worker's health, metrics, and session
// status over HTTP.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roymercy27-cyber/jarvis-agent/internal/archive"
	"github.com/roymercy27-cyber/jarvis-agent/internal/buildinfo"
	"github.com/roymercy27-cyber/jarvis-agent/internal/observability"
)

// SessionInfo describes one session for the status endpoint.
type SessionInfo struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// StatusSource reports the worker's live sessions.
type StatusSource interface {
	Sessions() []SessionInfo
}

// Server serves the worker's HTTP surface.
type Server struct {
	source    StatusSource
	archive   *archive.Store
	logger    *slog.Logger
	startedAt time.Time
}

// New creates the server. archive may be nil when transcript
// archiving is disabled.
func New(source StatusSource, arch *archive.Store, logger *slog.Logger) *Server {
	return &Server{
		source:    source,
		archive:   arch,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, req)
	})

	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/sessions", s.handleSessions)
	r.Get("/v1/sessions/{id}/transcript", s.handleTranscript)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessions := []SessionInfo{}
	if s.source != nil {
		sessions = s.source.Sessions()
	}
	s.writeJSON(w, map[string]any{
		"version":        buildinfo.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"sessions":       sessions,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	sums, err := s.archive.RecentSessions(r.Context(), 50)
	if err != nil {
		s.logger.Error("listing archived sessions", "error", err)
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	if sums == nil {
		sums = []archive.SessionSummary{}
	}
	s.writeJSON(w, sums)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	turns, err := s.archive.Transcript(r.Context(), id)
	if err != nil {
		s.logger.Error("loading transcript", "session", id, "error", err)
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	if len(turns) == 0 {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	s.writeJSON(w, turns)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}
