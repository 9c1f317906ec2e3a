package domain

import (
	"sort"
	"time"
)

// Accumulator joins partial rows from several sub-sources into complete
// hourly observations. Rows are keyed by their hour; a later value for the
// same quantity and hour replaces an earlier one.
type Accumulator struct {
	partials map[int64]*partialObservation
	dropped  int
}

type partialObservation struct {
	time   time.Time
	values map[Quantity]float64
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{partials: make(map[int64]*partialObservation)}
}

// Add merges one raw row. Rows without a valid hour key are dropped and
// Add reports false.
func (a *Accumulator) Add(row RawRow) bool {
	t, err := row.Timestamp()
	if err != nil {
		a.dropped++
		return false
	}

	key := t.Unix()
	p, ok := a.partials[key]
	if !ok {
		p = &partialObservation{time: t, values: make(map[Quantity]float64, len(Quantities))}
		a.partials[key] = p
	}
	for q, v := range row.Values {
		p.values[q] = v
	}
	return true
}

// Dropped reports how many rows were rejected for an invalid hour key.
func (a *Accumulator) Dropped() int {
	return a.dropped
}

// Observations returns every hour whose quantities are all present, sorted
// ascending by time.
func (a *Accumulator) Observations() []Observation {
	out := make([]Observation, 0, len(a.partials))
	for _, p := range a.partials {
		if !p.complete() {
			continue
		}
		out = append(out, Observation{
			Time:          p.time,
			Humidity:      p.values[Humidity],
			Precipitation: p.values[Precipitation],
			Pressure:      p.values[Pressure],
			Temperature:   p.values[Temperature],
			SolarRadiance: p.values[SolarRadiance],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (p *partialObservation) complete() bool {
	for _, q := range Quantities {
		if _, ok := p.values[q]; !ok {
			return false
		}
	}
	return true
}

// Normalize turns a sparse raw table into a strictly hourly, ascending,
// de-duplicated series. It returns ErrDataUnavailable when no complete hour
// remains.
func Normalize(rows []RawRow) ([]Observation, error) {
	acc := NewAccumulator()
	for _, row := range rows {
		acc.Add(row)
	}
	obs := acc.Observations()
	if len(obs) == 0 {
		return nil, ErrDataUnavailable
	}
	return obs, nil
}
