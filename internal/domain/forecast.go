package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// TimestampLayout is the boundary format for hourly timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is the boundary format for calendar dates.
	DateLayout = "2006-01-02"
)

// Timestamp is a UTC hour that serializes as "YYYY-MM-DD HH:MM:SS".
type Timestamp time.Time

// NewTimestamp converts t to UTC.
func NewTimestamp(t time.Time) Timestamp { return Timestamp(t.UTC()) }

// Time returns the underlying time value.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// Equal reports whether t and u are the same instant.
func (t Timestamp) Equal(u Timestamp) bool { return time.Time(t).Equal(time.Time(u)) }

func (t Timestamp) String() string { return time.Time(t).Format(TimestampLayout) }

// Date returns the calendar date component as "YYYY-MM-DD".
func (t Timestamp) Date() string { return time.Time(t).Format(DateLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	*t = Timestamp(parsed)
	return nil
}

// RainLabel is the thresholded outcome of a rain prediction.
type RainLabel string

const (
	Rain   RainLabel = "RAIN"
	NoRain RainLabel = "NO_RAIN"
)

// WeatherClass summarizes a day's rain outlook.
type WeatherClass string

const (
	Rainy  WeatherClass = "RAINY"
	Cloudy WeatherClass = "CLOUDY"
	Sunny  WeatherClass = "SUNNY"
)

// HourlyRain is one hour of the rain-probability forecast.
type HourlyRain struct {
	Time        Timestamp `json:"time"`
	Hour        int       `json:"hour"`
	Probability float64   `json:"probability"` // percent, one decimal
	Label       RainLabel `json:"prediction"`
}

// HourlyClimate is one hour of the temperature/humidity forecast.
type HourlyClimate struct {
	Time        Timestamp `json:"time"`
	Temperature float64   `json:"temp"`
	Humidity    float64   `json:"humidity"`
}

// DailyRain aggregates the hourly rain forecast for one calendar date.
type DailyRain struct {
	Date            string       `json:"date"`
	Weekday         string       `json:"weekday"`
	MeanProbability float64      `json:"probability"`
	MaxProbability  float64      `json:"max_probability"`
	WeatherClass    WeatherClass `json:"weather"`
}

// DailyClimate aggregates the hourly temperature forecast for one calendar date.
type DailyClimate struct {
	Date    string  `json:"date"`
	Weekday string  `json:"weekday"`
	TempMax float64 `json:"temp_max"`
	TempMin float64 `json:"temp_min"`
}

// MergedHourly joins a temperature/humidity hour with the rain forecast for
// the same timestamp.
type MergedHourly struct {
	Time            Timestamp `json:"time"`
	Temperature     float64   `json:"temp"`
	Humidity        float64   `json:"humidity"`
	RainProbability float64   `json:"rain_probability"`
	RainLabel       RainLabel `json:"prediction"`
}

// MergedDaily joins a daily temperature summary with the rain summary for
// the same date.
type MergedDaily struct {
	Date               string       `json:"date"`
	Weekday            string       `json:"weekday"`
	TempMax            float64      `json:"temp_max"`
	TempMin            float64      `json:"temp_min"`
	RainProbability    float64      `json:"rain_probability"`
	MaxRainProbability float64      `json:"max_rain_probability"`
	WeatherClass       WeatherClass `json:"weather"`
}

// ForecastRun is the complete output of one pipeline invocation.
type ForecastRun struct {
	ID            string          `json:"id"`
	GeneratedAt   time.Time       `json:"generated_at"`
	LastObserved  Timestamp       `json:"last_observed"`
	RainHourly    []HourlyRain    `json:"rain_24h"`
	RainDaily     []DailyRain     `json:"rain_7d"`
	ClimateHourly []HourlyClimate `json:"climate_24h,omitempty"`
	ClimateDaily  []DailyClimate  `json:"climate_7d,omitempty"`
	Hourly        []MergedHourly  `json:"hourly,omitempty"`
	Daily         []MergedDaily   `json:"daily,omitempty"`
}

// HourlyForecast returns the merged hourly records when the run has them and
// the rain-only records otherwise.
func (r ForecastRun) HourlyForecast() any {
	if len(r.Hourly) > 0 {
		return r.Hourly
	}
	return r.RainHourly
}

// DailyForecast returns the merged daily records when the run has them and
// the rain-only records otherwise.
func (r ForecastRun) DailyForecast() any {
	if len(r.Daily) > 0 {
		return r.Daily
	}
	return r.RainDaily
}

// RunSummary is the indexed part of a stored run.
type RunSummary struct {
	ID           string    `json:"id"`
	GeneratedAt  time.Time `json:"generated_at"`
	LastObserved string    `json:"last_observed"`
	RainyHours   int       `json:"rainy_hours"`
	RainyDays    int       `json:"rainy_days"`
}

// RainyHours counts hours labelled RAIN.
func (r ForecastRun) RainyHours() int {
	n := 0
	for _, h := range r.RainHourly {
		if h.Label == Rain {
			n++
		}
	}
	return n
}

// RainyDays counts days classified RAINY.
func (r ForecastRun) RainyDays() int {
	n := 0
	for _, d := range r.RainDaily {
		if d.WeatherClass == Rainy {
			n++
		}
	}
	return n
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
