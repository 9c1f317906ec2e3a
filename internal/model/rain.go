// Package model loads trained model artifacts and exposes them behind the
// forecast package's interfaces.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

var validate = validator.New()

// RainArtifact is the on-disk rain classifier: a standard scaler over
// FeatureCols, a column selector, and a logistic regression over the
// selected columns.
type RainArtifact struct {
	FeatureCols  []string      `json:"feature_cols" validate:"required,min=1,dive,required"`
	Threshold    float64       `json:"threshold" validate:"gt=0,lt=1"`
	Scaler       ScalerParams  `json:"scaler"`
	Selected     []int         `json:"selected" validate:"omitempty,dive,gte=0"`
	Coefficients []float64     `json:"coefficients" validate:"required,min=1"`
	Intercept    float64       `json:"intercept"`
	Metadata     ModelMetadata `json:"metadata"`
}

// ScalerParams are per-feature standardization parameters.
type ScalerParams struct {
	Mean  []float64 `json:"mean" validate:"required,min=1"`
	Scale []float64 `json:"scale" validate:"required,min=1"`
}

// ModelMetadata is informational and not used for prediction.
type ModelMetadata struct {
	Name      string `json:"name"`
	TrainedAt string `json:"trained_at"`
}

// RainClassifier scores feature vectors with a loaded RainArtifact. It is
// immutable after loading and safe for concurrent use.
type RainClassifier struct {
	artifact RainArtifact
	selected []int
}

// LoadRainClassifier reads and validates a rain artifact from path.
func LoadRainClassifier(path string) (*RainClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rain model: %w", err)
	}
	c, err := ParseRainClassifier(data)
	if err != nil {
		return nil, fmt.Errorf("load rain model %s: %w", path, err)
	}
	return c, nil
}

// ParseRainClassifier decodes and validates a rain artifact. Every feature
// column must be one the feature builder produces.
func ParseRainClassifier(data []byte) (*RainClassifier, error) {
	var a RainArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := validate.Struct(a); err != nil {
		return nil, fmt.Errorf("validate artifact: %w", err)
	}

	n := len(a.FeatureCols)
	seen := make(map[string]bool, n)
	var unknown []string
	for _, name := range a.FeatureCols {
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature column %q", name)
		}
		seen[name] = true
		if !domain.IsKnownFeature(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("feature columns not produced by the feature builder: %v", unknown)
	}
	if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
		return nil, fmt.Errorf("scaler covers %d/%d columns, want %d", len(a.Scaler.Mean), len(a.Scaler.Scale), n)
	}

	selected := a.Selected
	if len(selected) == 0 {
		selected = make([]int, n)
		for i := range selected {
			selected[i] = i
		}
	}
	for _, idx := range selected {
		if idx >= n {
			return nil, fmt.Errorf("selected column %d out of range for %d features", idx, n)
		}
	}
	if len(a.Coefficients) != len(selected) {
		return nil, fmt.Errorf("%d coefficients for %d selected columns", len(a.Coefficients), len(selected))
	}

	return &RainClassifier{artifact: a, selected: selected}, nil
}

// FeatureNames returns the feature order the classifier expects.
func (c *RainClassifier) FeatureNames() []string {
	out := make([]string, len(c.artifact.FeatureCols))
	copy(out, c.artifact.FeatureCols)
	return out
}

// Threshold is the probability above which an hour is labelled RAIN.
func (c *RainClassifier) Threshold() float64 {
	return c.artifact.Threshold
}

// PredictProba returns the probability of rain for one feature vector.
func (c *RainClassifier) PredictProba(features []float64) (float64, error) {
	if len(features) != len(c.artifact.FeatureCols) {
		return 0, fmt.Errorf("got %d features, want %d", len(features), len(c.artifact.FeatureCols))
	}
	z := c.artifact.Intercept
	for k, idx := range c.selected {
		v := features[idx]
		if math.IsNaN(v) {
			return 0, errors.New("feature " + c.artifact.FeatureCols[idx] + " is undefined")
		}
		scale := c.artifact.Scaler.Scale[idx]
		if scale == 0 {
			scale = 1
		}
		z += c.artifact.Coefficients[k] * (v - c.artifact.Scaler.Mean[idx]) / scale
	}
	return 1 / (1 + math.Exp(-z)), nil
}
