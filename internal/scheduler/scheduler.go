// Package scheduler refreshes the forecast on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

// Runner executes one forecast cycle.
type Runner interface {
	RunOnce(ctx context.Context) (domain.ForecastRun, error)
}

// Scheduler runs the forecast pipeline every interval, starting immediately.
// A run that outlasts the interval delays the next one instead of
// overlapping it.
type Scheduler struct {
	cron     *gocron.Scheduler
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Scheduler. Call Start to begin running.
func New(runner Runner, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:     cron,
		runner:   runner,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start schedules the forecast job and starts the underlying scheduler.
// Runs are cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid forecast interval %s", s.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if _, err := s.cron.Every(s.interval).Do(s.run, ctx); err != nil {
		cancel()
		return fmt.Errorf("schedule forecast job: %w", err)
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	s.metrics.PipelineRunning.Set(1)
	s.cron.StartAsync()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Runs are abandoned after three intervals.
	runCtx, cancel := context.WithTimeout(ctx, 3*s.interval)
	defer cancel()

	if _, err := s.runner.RunOnce(runCtx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("forecast run failed", "error", err)
	}
}

// Stop cancels any in-flight run and stops future runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.cron.Stop()
	s.metrics.PipelineRunning.Set(0)
	s.logger.Info("scheduler stopped")
}
