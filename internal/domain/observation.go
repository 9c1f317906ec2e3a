package domain

import (
	"fmt"
	"time"
)

// Quantity names a measured field using its NASA POWER parameter code.
type Quantity string

const (
	Humidity      Quantity = "QV2M"
	Precipitation Quantity = "PRECTOTCORR"
	Pressure      Quantity = "PS"
	Temperature   Quantity = "T2M"
	SolarRadiance Quantity = "ALLSKY_SFC_PAR_TOT"
)

// Quantities lists every field an observation must carry, in table column order.
var Quantities = []Quantity{Humidity, Precipitation, Pressure, Temperature, SolarRadiance}

// RawRow is one sparse row of the raw table: an hour key plus whichever
// quantities a sub-source reported for that hour.
type RawRow struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Source string
	Values map[Quantity]float64
}

// Timestamp builds the UTC hour this row belongs to. It rejects out-of-range
// fields instead of letting time.Date normalize them into a different hour.
func (r RawRow) Timestamp() (time.Time, error) {
	if r.Year <= 0 || r.Month < 1 || r.Month > 12 || r.Day < 1 || r.Hour < 0 || r.Hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour key %04d-%02d-%02d %02d", r.Year, r.Month, r.Day, r.Hour)
	}
	t := time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, 0, 0, 0, time.UTC)
	if t.Day() != r.Day {
		return time.Time{}, fmt.Errorf("invalid day %04d-%02d-%02d", r.Year, r.Month, r.Day)
	}
	return t, nil
}

// RawRowAt builds a RawRow keyed by the hour containing t.
func RawRowAt(t time.Time, source string, values map[Quantity]float64) RawRow {
	t = t.UTC()
	return RawRow{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Source: source,
		Values: values,
	}
}

// Observation is one complete hour of measurements.
type Observation struct {
	Time          time.Time `json:"time"`
	Humidity      float64   `json:"QV2M"`
	Precipitation float64   `json:"PRECTOTCORR"`
	Pressure      float64   `json:"PS"`
	Temperature   float64   `json:"T2M"`
	SolarRadiance float64   `json:"ALLSKY_SFC_PAR_TOT"`
}

// Value returns the observation's value for q.
func (o Observation) Value(q Quantity) float64 {
	switch q {
	case Humidity:
		return o.Humidity
	case Precipitation:
		return o.Precipitation
	case Pressure:
		return o.Pressure
	case Temperature:
		return o.Temperature
	case SolarRadiance:
		return o.SolarRadiance
	default:
		return 0
	}
}

// Tail returns the last n observations, or all of them when fewer exist.
func Tail(obs []Observation, n int) []Observation {
	if n <= 0 || len(obs) <= n {
		return obs
	}
	return obs[len(obs)-n:]
}
