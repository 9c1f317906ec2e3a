package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

const (
	defaultHistoryLimit = 24
	maxHistoryLimit     = 500
)

// ForecastSource returns the most recent forecast run.
type ForecastSource interface {
	Latest(ctx context.Context) (domain.ForecastRun, error)
}

// HistorySource lists stored forecast runs, newest first.
type HistorySource interface {
	History(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Server exposes health, readiness, metrics, and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	forecasts  ForecastSource
	history    HistorySource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// forecast API. The run history route is registered only when history is
// non-nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, forecasts ForecastSource, history HistorySource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forecasts: forecasts,
		history:   history,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.HandleFunc("GET /health", s.handleClock)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/forecast/hourly", s.handleForecast(domain.ForecastRun.HourlyForecast))
	mux.HandleFunc("GET /api/v1/forecast/daily", s.handleForecast(domain.ForecastRun.DailyForecast))
	mux.HandleFunc("GET /api/v1/forecast", s.handleRun)
	if history != nil {
		mux.HandleFunc("GET /api/v1/runs", s.handleHistory)
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

// handleClock answers plain-text uptime probes with the service clock.
func (s *Server) handleClock(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "OK - %s", domain.Now().Format(time.TimeOnly))
}

type forecastResponse struct {
	RunID        string           `json:"run_id"`
	GeneratedAt  string           `json:"generated_time"`
	LastObserved domain.Timestamp `json:"last_observed"`
	Forecast     any              `json:"forecast"`
}

func (s *Server) handleForecast(pick func(domain.ForecastRun) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := s.latest(w, r)
		if !ok {
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, forecastResponse{
			RunID:        run.ID,
			GeneratedAt:  run.GeneratedAt.Format(domain.TimestampLayout),
			LastObserved: run.LastObserved,
			Forecast:     pick(run),
		})
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.latest(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, run)
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (domain.ForecastRun, bool) {
	run, err := s.forecasts.Latest(r.Context())
	if errors.Is(err, domain.ErrNoForecast) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return run, false
	}
	if err != nil {
		s.logger.Error("load latest forecast", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return run, false
	}
	return run, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("limit must be 1-%d", maxHistoryLimit),
			})
			return
		}
		limit = n
	}

	runs, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("load run history", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
