// Package api exposes the ops HTTP interface served while a crawl runs.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/github-stars-crawler/internal/progress/sinks"
)

// Server wires the health, metrics, and run-state endpoints.
type Server struct {
	router chi.Router
	state  *sinks.StateSink
	logger *zap.Logger
}

// NewServer constructs a Server over the given metrics registry and state
// sink.
func NewServer(registry *prometheus.Registry, state *sinks.StateSink, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		state:  state,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/runs/current", s.currentRun)
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) currentRun(w http.ResponseWriter, _ *http.Request) {
	if s.state == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "run state unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}
