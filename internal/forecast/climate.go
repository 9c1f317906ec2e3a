package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

// SequenceSpec describes one windowed sequence model's shape.
type SequenceSpec struct {
	Path        string
	InputSteps  int
	OutputSteps int
}

var (
	Sequence24h = SequenceSpec{Path: PathClimate24h, InputSteps: 72, OutputSteps: 24}
	Sequence7d  = SequenceSpec{Path: PathClimate7d, InputSteps: 168, OutputSteps: 168}
)

// SequenceInputs is the column order of each window row. The model's
// outputs are the leading SequenceOutputs columns.
var SequenceInputs = []string{
	string(domain.Temperature),
	string(domain.Humidity),
	string(domain.Precipitation),
	string(domain.Pressure),
	string(domain.SolarRadiance),
	domain.FeatureHourSin,
	domain.FeatureHourCos,
	domain.FeatureMonthSin,
	domain.FeatureMonthCos,
}

// SequenceOutputs is the number of leading input columns the model predicts.
const SequenceOutputs = 2

// SequenceWindow builds the raw plus cyclical input rows for obs.
func SequenceWindow(obs []domain.Observation) [][]float64 {
	out := make([][]float64, len(obs))
	for i, o := range obs {
		cal := domain.CalendarFeatures(o.Time)
		out[i] = []float64{
			o.Temperature,
			o.Humidity,
			o.Precipitation,
			o.Pressure,
			o.SolarRadiance,
			cal[domain.FeatureHourSin],
			cal[domain.FeatureHourCos],
			cal[domain.FeatureMonthSin],
			cal[domain.FeatureMonthCos],
		}
	}
	return out
}

func climateHourly(ctx context.Context, model SequenceModel, obs []domain.Observation, spec SequenceSpec) ([]domain.HourlyClimate, error) {
	if len(obs) < spec.InputSteps {
		return nil, &domain.InsufficientHistoryError{Stage: spec.Path, Required: spec.InputSteps, Available: len(obs)}
	}
	window := domain.Tail(obs, spec.InputSteps)
	raw := SequenceWindow(window)
	scaler := FitScaler(raw)

	flat, err := model.Predict(ctx, scaler.Transform(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrModelInference, spec.Path, err)
	}
	if want := spec.OutputSteps * SequenceOutputs; len(flat) != want {
		return nil, fmt.Errorf("%w: %s: got %d output values, want %d", domain.ErrModelInference, spec.Path, len(flat), want)
	}

	last := window[len(window)-1].Time
	out := make([]domain.HourlyClimate, spec.OutputSteps)
	for i := range out {
		row := scaler.InversePadded(flat[i*SequenceOutputs : (i+1)*SequenceOutputs])
		out[i] = domain.HourlyClimate{
			Time:        domain.NewTimestamp(last.Add(time.Duration(i+1) * time.Hour)),
			Temperature: domain.Round(row[0], 2),
			Humidity:    domain.Round(row[1], 2),
		}
	}
	return out, nil
}
