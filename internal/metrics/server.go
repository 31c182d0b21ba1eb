package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Health tracks the outcome of the most recent run.
type Health struct {
	mu        sync.RWMutex
	startedAt time.Time
	lastRunAt time.Time
	lastRunID string
	lastErr   string
}

func NewHealth() *Health { return &Health{startedAt: time.Now()} }

// RunFinished records the latest run. err may be nil.
func (h *Health) RunFinished(id string, at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRunAt = at
	h.lastRunID = id
	h.lastErr = ""
	if err != nil {
		h.lastErr = err.Error()
	}
}

// ServeHTTP handles /healthz. A failed last run reports 503.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		LastRunID string `json:"last_run_id,omitempty"`
		LastRunAt string `json:"last_run_at,omitempty"`
		LastError string `json:"last_error,omitempty"`
	}{
		Status:    "healthy",
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		LastRunID: h.lastRunID,
		LastError: h.lastErr,
	}
	if !h.lastRunAt.IsZero() {
		status.LastRunAt = h.lastRunAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.lastErr != "" {
		status.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// Server exposes /metrics and /healthz.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// NewServer serves metrics gathered from g.
func NewServer(addr string, g prometheus.Gatherer, health *Health, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)
	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: log.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the mux, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
