// Package pipeline runs one forecast cycle: fetch raw observations,
// normalize them, forecast rain and temperature/humidity concurrently, merge,
// and publish to every configured sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

// Run outcomes, used as the runs_total label.
const (
	OutcomeSuccess    = "success"
	OutcomePartial    = "partial"
	OutcomeEmpty      = "empty"
	OutcomeNoData     = "no_data"
	OutcomeFetchError = "fetch_error"
)

// ObservationSource reads the raw observation table from the remote store.
type ObservationSource interface {
	FetchObservations(ctx context.Context) ([]domain.RawRow, error)
}

// Forecaster produces the four forecast products from a normalized series.
type Forecaster interface {
	Rain24h(obs []domain.Observation) ([]domain.HourlyRain, error)
	Rain7d(obs []domain.Observation) ([]domain.DailyRain, error)
	Climate24h(ctx context.Context, model forecast.SequenceModel, obs []domain.Observation) ([]domain.HourlyClimate, error)
	Climate7d(ctx context.Context, model forecast.SequenceModel, obs []domain.Observation) ([]domain.DailyClimate, error)
}

// Sink receives every completed forecast run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, run domain.ForecastRun) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClimateModels enables the temperature/humidity path. Either model may
// be nil to skip that horizon.
func WithClimateModels(model24h, model7d forecast.SequenceModel) Option {
	return func(p *Pipeline) {
		p.model24h = model24h
		p.model7d = model7d
	}
}

// WithFetchRetries sets how many times a failed fetch is retried within one
// run, with exponential backoff starting at initial.
func WithFetchRetries(retries int, initial time.Duration) Option {
	return func(p *Pipeline) {
		p.fetchRetries = retries
		p.initialBackoff = initial
	}
}

// Pipeline orchestrates a single fetch-forecast-publish cycle. RunOnce is
// safe to call repeatedly; the scheduler never overlaps calls.
type Pipeline struct {
	source     ObservationSource
	forecaster Forecaster
	sinks      []Sink
	model24h   forecast.SequenceModel
	model7d    forecast.SequenceModel
	logger     *slog.Logger
	metrics    *observability.Metrics

	fetchRetries   int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	ready  atomic.Bool
	latest atomic.Pointer[domain.ForecastRun]
}

// New creates a Pipeline with the given stages and observability.
func New(source ObservationSource, forecaster Forecaster, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:         source,
		forecaster:     forecaster,
		sinks:          sinks,
		logger:         logger,
		metrics:        metrics,
		fetchRetries:   2,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a forecast run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no forecast run has completed yet")
	}
	return nil
}

// Latest returns the most recent completed run held in memory.
func (p *Pipeline) Latest(_ context.Context) (domain.ForecastRun, error) {
	run := p.latest.Load()
	if run == nil {
		return domain.ForecastRun{}, domain.ErrNoForecast
	}
	return *run, nil
}

// RunOnce executes one forecast cycle. Only fetch failures and missing data
// are returned; forecast and publish failures are logged and counted.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.ForecastRun, error) {
	start := time.Now()
	defer func() { p.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	rows, err := p.fetch(ctx)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(OutcomeFetchError).Inc()
		return domain.ForecastRun{}, err
	}

	obs, err := domain.Normalize(rows)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(OutcomeNoData).Inc()
		p.logger.Warn("no complete observations", "raw_rows", len(rows))
		return domain.ForecastRun{}, err
	}
	p.metrics.ObservationsNormalized.Set(float64(len(obs)))

	run := domain.ForecastRun{
		ID:           uuid.NewString(),
		GeneratedAt:  domain.Now(),
		LastObserved: domain.NewTimestamp(obs[len(obs)-1].Time),
	}
	logger := p.logger.With("run_id", run.ID)
	logger.Debug("observations normalized", "raw_rows", len(rows), "rows", len(obs), "last_observed", run.LastObserved.String())

	failed := p.forecast(ctx, obs, &run)

	if len(run.ClimateHourly) > 0 {
		run.Hourly = domain.MergeHourly(run.ClimateHourly, run.RainHourly)
	}
	if len(run.ClimateDaily) > 0 {
		run.Daily = domain.MergeDaily(run.ClimateDaily, run.RainDaily)
	}

	if len(run.RainHourly)+len(run.RainDaily)+len(run.ClimateHourly)+len(run.ClimateDaily) == 0 {
		p.metrics.RunsTotal.WithLabelValues(OutcomeEmpty).Inc()
		logger.Warn("forecast run produced no records", "failed_paths", failed)
		return run, nil
	}

	p.publish(ctx, logger, run)
	p.latest.Store(&run)
	p.ready.Store(true)

	outcome := OutcomeSuccess
	if failed > 0 {
		outcome = OutcomePartial
	}
	p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	logger.Info("forecast run complete",
		"outcome", outcome,
		"rainy_hours", fmt.Sprintf("%d/%d", run.RainyHours(), len(run.RainHourly)),
		"rainy_days", fmt.Sprintf("%d/%d", run.RainyDays(), len(run.RainDaily)),
		"duration", time.Since(start),
	)
	return run, nil
}

// forecast runs every enabled path concurrently and returns how many failed.
// Each path writes only its own field of run.
func (p *Pipeline) forecast(ctx context.Context, obs []domain.Observation, run *domain.ForecastRun) int {
	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	track := func(err error) {
		if err != nil {
			failed.Add(1)
		}
	}

	g.Go(func() error {
		var err error
		run.RainHourly, err = p.forecaster.Rain24h(obs)
		track(err)
		return nil
	})
	g.Go(func() error {
		var err error
		run.RainDaily, err = p.forecaster.Rain7d(obs)
		track(err)
		return nil
	})
	if p.model24h != nil {
		g.Go(func() error {
			var err error
			run.ClimateHourly, err = p.forecaster.Climate24h(ctx, p.model24h, obs)
			track(err)
			return nil
		})
	}
	if p.model7d != nil {
		g.Go(func() error {
			var err error
			run.ClimateDaily, err = p.forecaster.Climate7d(ctx, p.model7d, obs)
			track(err)
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

// fetch reads the raw table, retrying with exponential backoff.
func (p *Pipeline) fetch(ctx context.Context) ([]domain.RawRow, error) {
	backoff := p.initialBackoff
	for attempt := 0; ; attempt++ {
		rows, err := p.source.FetchObservations(ctx)
		if err == nil {
			return rows, nil
		}
		if ctx.Err() != nil || attempt >= p.fetchRetries {
			return nil, fmt.Errorf("fetch observations: %w", err)
		}
		p.logger.Warn("fetch observations failed, retrying", "error", err, "attempt", attempt+1, "backoff", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return nil, fmt.Errorf("fetch observations: %w", ctx.Err())
		}
		backoff = sharedretry.NextBackoff(backoff, p.maxBackoff)
	}
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, run domain.ForecastRun) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, run); err != nil {
			p.metrics.PublishErrors.WithLabelValues(sink.Name()).Inc()
			logger.Error("publish forecast failed", "sink", sink.Name(), "error", err)
			continue
		}
		logger.Debug("forecast published", "sink", sink.Name())
	}
}
