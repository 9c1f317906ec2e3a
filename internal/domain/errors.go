package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the remote store returned nothing usable or
	// normalization left no complete hour.
	ErrDataUnavailable = errors.New("no observation data available")

	// ErrModelInference wraps any failure raised by a predictive model.
	ErrModelInference = errors.New("model inference failed")

	// ErrNoForecast means no forecast run has completed or been stored yet.
	ErrNoForecast = errors.New("no forecast available")
)

// InsufficientHistoryError reports that a stage needs a longer trailing
// window than the input provides.
type InsufficientHistoryError struct {
	Stage     string
	Required  int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need %d hourly rows, have %d", e.Stage, e.Required, e.Available)
}

// IsInsufficientHistory reports whether err carries an InsufficientHistoryError.
func IsInsufficientHistory(err error) bool {
	var target *InsufficientHistoryError
	return errors.As(err, &target)
}
