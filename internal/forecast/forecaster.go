// Package forecast turns a normalized observation series into hourly and
// daily predictions. Rain uses template substitution on the latest feature
// row; temperature and humidity use a windowed sequence model.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

// Forecast path labels, used in logs, metrics, and error stages.
const (
	PathRain24h    = "rain_24h"
	PathRain7d     = "rain_7d"
	PathClimate24h = "climate_24h"
	PathClimate7d  = "climate_7d"
)

// RainClassifier scores one feature vector, ordered by FeatureNames, with a
// rain probability in [0,1].
type RainClassifier interface {
	FeatureNames() []string
	Threshold() float64
	PredictProba(features []float64) (float64, error)
}

// SequenceModel projects a standardized window of input rows into
// OutputSteps future rows over the output columns, returned row-major.
type SequenceModel interface {
	Predict(ctx context.Context, window [][]float64) ([]float64, error)
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithSeed makes the long-horizon perturbation reproducible.
func WithSeed(seed uint64) Option {
	return func(f *Forecaster) {
		f.seed = &seed
	}
}

// WithFeatureCache memoizes derived feature tables for up to size distinct
// observation windows. A size of zero or less disables the cache.
func WithFeatureCache(size int) Option {
	return func(f *Forecaster) {
		if size > 0 {
			f.cache = newFeatureCache(size)
		}
	}
}

// Forecaster runs the forecast entry points. It holds no per-run state and is
// safe for concurrent use.
type Forecaster struct {
	rain    RainClassifier
	logger  *slog.Logger
	metrics *observability.Metrics
	cache   *featureCache
	seed    *uint64
}

// New creates a Forecaster around a long-lived rain classifier.
func New(rain RainClassifier, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Forecaster {
	f := &Forecaster{
		rain:    rain,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Rain24h forecasts rain probability for each of the next 24 hours.
func (f *Forecaster) Rain24h(obs []domain.Observation) ([]domain.HourlyRain, error) {
	return guard(f, PathRain24h, func() ([]domain.HourlyRain, error) {
		return f.rainHourly(obs, PathRain24h, shortHorizon)
	})
}

// Rain7d forecasts 168 hours of rain probability and reduces them to one
// record per calendar date.
func (f *Forecaster) Rain7d(obs []domain.Observation) ([]domain.DailyRain, error) {
	return guard(f, PathRain7d, func() ([]domain.DailyRain, error) {
		hours, err := f.rainHourly(obs, PathRain7d, longHorizon)
		if err != nil {
			return nil, err
		}
		return domain.AggregateRainDaily(hours), nil
	})
}

// Climate24h forecasts temperature and humidity for each of the next 24 hours.
func (f *Forecaster) Climate24h(ctx context.Context, model SequenceModel, obs []domain.Observation) ([]domain.HourlyClimate, error) {
	return guard(f, PathClimate24h, func() ([]domain.HourlyClimate, error) {
		return climateHourly(ctx, model, obs, Sequence24h)
	})
}

// Climate7d forecasts 168 hours of temperature and reduces them to daily
// maximum and minimum.
func (f *Forecaster) Climate7d(ctx context.Context, model SequenceModel, obs []domain.Observation) ([]domain.DailyClimate, error) {
	return guard(f, PathClimate7d, func() ([]domain.DailyClimate, error) {
		hours, err := climateHourly(ctx, model, obs, Sequence7d)
		if err != nil {
			return nil, err
		}
		return domain.AggregateClimateDaily(hours), nil
	})
}

// guard is the last line of defense around a forecast path: it converts
// model panics into ErrModelInference, records the outcome, and always
// returns a non-nil slice.
func guard[T any](f *Forecaster, path string, run func() ([]T, error)) (out []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", domain.ErrModelInference, path, r)
		}
		if err != nil {
			out = []T{}
			f.recordFailure(path, err)
			return
		}
		if out == nil {
			out = []T{}
		}
		f.metrics.PredictionsTotal.WithLabelValues(path).Add(float64(len(out)))
	}()
	return run()
}

func (f *Forecaster) recordFailure(path string, err error) {
	var short *domain.InsufficientHistoryError
	switch {
	case errors.As(err, &short):
		f.metrics.InsufficientHistory.WithLabelValues(path).Inc()
		f.logger.Warn("insufficient history for forecast",
			"path", path, "required", short.Required, "available", short.Available)
	case errors.Is(err, domain.ErrModelInference):
		f.metrics.InferenceFailures.WithLabelValues(path).Inc()
		f.logger.Error("model inference failed", "path", path, "error", err)
	default:
		f.logger.Error("forecast failed", "path", path, "error", err)
	}
}

// features derives the complete feature table for window, consulting the
// cache when one is configured.
func (f *Forecaster) features(window []domain.Observation) []domain.FeatureRow {
	if f.cache == nil {
		return domain.BuildFeatures(window)
	}
	key := tableKey(window)
	if rows, ok := f.cache.get(key); ok {
		f.metrics.FeatureCache.WithLabelValues("hit").Inc()
		return rows
	}
	f.metrics.FeatureCache.WithLabelValues("miss").Inc()
	rows := domain.BuildFeatures(window)
	f.cache.put(key, rows)
	return rows
}

// newRand returns a generator private to one invocation.
func (f *Forecaster) newRand() *rand.Rand {
	if f.seed != nil {
		return rand.New(rand.NewPCG(*f.seed, *f.seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
