// Package http exposes the service's operational endpoints: liveness,
// readiness, Prometheus metrics, and a summary of the latest pipeline run.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/landslide-riskmap/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
// The orchestrator becomes ready once the base susceptibility map exists.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RunReporter exposes the most recent pipeline run, or nil before the first
// run completes.
type RunReporter interface {
	LastRun() *pipeline.RunResult
}

// Server exposes health, readiness, metrics, and run-status HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /runz routes. runs may be nil, which disables /runz.
func NewServer(addr string, ready ReadinessChecker, runs RunReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if runs != nil {
		mux.HandleFunc("GET /runz", handleRuns(runs))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// runzResponse summarizes a run without exposing error internals.
type runzResponse struct {
	RunID        string    `json:"run_id"`
	BaseMapPath  string    `json:"base_map_path"`
	RecordedPath string    `json:"recorded_rainfall_path"`
	Failed       bool      `json:"failed"`
	Days         []runzDay `json:"days"`
}

type runzDay struct {
	Day       int    `json:"day"`
	Date      string `json:"date"`
	FinalPath string `json:"final_path,omitempty"`
	Error     string `json:"error,omitempty"`
}

func handleRuns(runs RunReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		last := runs.LastRun()
		if last == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "no runs yet"})
			return
		}

		resp := runzResponse{
			RunID:        last.RunID,
			BaseMapPath:  last.BaseMapPath,
			RecordedPath: last.RecordedPath,
			Failed:       last.Failed(),
		}
		for _, d := range last.Days {
			day := runzDay{Day: d.Day, Date: d.Date, FinalPath: d.FinalPath}
			if d.Err != nil {
				day.Error = d.Err.Error()
				day.FinalPath = ""
			}
			resp.Days = append(resp.Days, day)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
