package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

type rainHorizon struct {
	hours       int
	contextRows int // trailing observations fed to the feature builder
	minRows     int // complete feature rows needed to pick every baseline
	shifting    bool
}

var (
	shortHorizon = rainHorizon{hours: 24, contextRows: 72, minRows: 1}
	longHorizon  = rainHorizon{hours: 168, contextRows: 168, minRows: longBaselineShift + 1, shifting: true}
)

const (
	// Long-horizon baselines step back in time as the target moves further out.
	midBaselineShift  = 6
	longBaselineShift = 12

	perturbFromHour = 48
	perturbScale    = 0.02
)

// rainHourly predicts horizon.hours future hours by substituting each target
// hour's calendar features into a baseline feature row.
func (f *Forecaster) rainHourly(obs []domain.Observation, path string, horizon rainHorizon) ([]domain.HourlyRain, error) {
	if len(obs) == 0 {
		return nil, domain.ErrDataUnavailable
	}
	window := domain.Tail(obs, horizon.contextRows)
	rows := f.features(window)
	if len(rows) < horizon.minRows {
		return nil, &domain.InsufficientHistoryError{Stage: path, Required: horizon.minRows, Available: len(rows)}
	}

	names := f.rain.FeatureNames()
	threshold := f.rain.Threshold()
	rng := f.newRand()
	last := window[len(window)-1].Time

	out := make([]domain.HourlyRain, 0, horizon.hours)
	for i := 0; i < horizon.hours; i++ {
		target := last.Add(time.Duration(i+1) * time.Hour)
		base := baselineRow(rows, i, horizon.shifting)
		vec := templateVector(base, target, names, i >= perturbFromHour && horizon.shifting, rng)

		p, err := f.rain.PredictProba(vec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s hour %d: %w", domain.ErrModelInference, path, i+1, err)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: %s hour %d: probability %v out of range", domain.ErrModelInference, path, i+1, p)
		}

		label := domain.NoRain
		if p > threshold {
			label = domain.Rain
		}
		out = append(out, domain.HourlyRain{
			Time:        domain.NewTimestamp(target),
			Hour:        i + 1,
			Probability: domain.Round(p*100, 1),
			Label:       label,
		})
	}
	return out, nil
}

// baselineRow picks the template row for the i-th future hour (0-based).
func baselineRow(rows []domain.FeatureRow, i int, shifting bool) domain.FeatureRow {
	latest := len(rows) - 1
	switch {
	case !shifting || i < 24:
		return rows[latest]
	case i < 48:
		return rows[latest-midBaselineShift]
	default:
		return rows[latest-longBaselineShift]
	}
}

// templateVector copies base into model order, overriding only the calendar,
// seasonal, and daytime features for target. When perturb is set, rolling
// means are scaled by an independent Gaussian factor around 1.
func templateVector(base domain.FeatureRow, target time.Time, names []string, perturb bool, rng *rand.Rand) []float64 {
	overrides := domain.CalendarFeatures(target)
	overrides[domain.FeatureDaytime] = 0
	if domain.IsDaytimeHour(target) {
		overrides[domain.FeatureDaytime] = 1
	}

	vec := base.Vector(names)
	for i, name := range names {
		if v, ok := overrides[name]; ok {
			vec[i] = v
			continue
		}
		if perturb && domain.IsRollingMean(name) {
			vec[i] *= 1 + perturbScale*rng.NormFloat64()
		}
	}
	return vec
}
