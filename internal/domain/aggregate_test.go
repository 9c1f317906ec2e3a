package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyWeather(t *testing.T) {
	tests := []struct {
		max  float64
		want WeatherClass
	}{
		{71, Rainy},
		{70.1, Rainy},
		{70, Cloudy},
		{41, Cloudy},
		{40, Sunny},
		{0, Sunny},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyWeather(tc.max), "max=%v", tc.max)
	}
}

func hourlyRain(start time.Time, probs ...float64) []HourlyRain {
	out := make([]HourlyRain, len(probs))
	for i, p := range probs {
		out[i] = HourlyRain{
			Time:        NewTimestamp(start.Add(time.Duration(i) * time.Hour)),
			Hour:        i + 1,
			Probability: p,
			Label:       NoRain,
		}
	}
	return out
}

func TestAggregateRainDaily(t *testing.T) {
	// 22:00 Monday start: two hours on Monday, three on Tuesday.
	start := time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)
	hours := hourlyRain(start, 10, 20, 50, 80, 35)

	days := AggregateRainDaily(hours)

	require.Len(t, days, 2)
	assert.Equal(t, "2024-01-01", days[0].Date)
	assert.Equal(t, "Mon", days[0].Weekday)
	assert.Equal(t, 15.0, days[0].MeanProbability)
	assert.Equal(t, 20.0, days[0].MaxProbability)
	assert.Equal(t, Sunny, days[0].WeatherClass)

	assert.Equal(t, "2024-01-02", days[1].Date)
	assert.Equal(t, "Tue", days[1].Weekday)
	assert.Equal(t, 55.0, days[1].MeanProbability)
	assert.Equal(t, 80.0, days[1].MaxProbability)
	assert.Equal(t, Rainy, days[1].WeatherClass)
}

func TestAggregateRainDaily_RoundsToOneDecimal(t *testing.T) {
	hours := hourlyRain(testStart, 10, 10, 11)

	days := AggregateRainDaily(hours)

	require.Len(t, days, 1)
	assert.Equal(t, 10.3, days[0].MeanProbability)
}

func TestAggregateRainDaily_MaxNeverBelowMean(t *testing.T) {
	probs := make([]float64, 168)
	for i := range probs {
		probs[i] = float64((i * 37) % 100)
	}

	for _, d := range AggregateRainDaily(hourlyRain(testStart, probs...)) {
		assert.GreaterOrEqual(t, d.MaxProbability, d.MeanProbability, d.Date)
	}
}

func TestAggregateRainDaily_Empty(t *testing.T) {
	assert.Empty(t, AggregateRainDaily(nil))
}

func TestAggregateClimateDaily(t *testing.T) {
	hours := []HourlyClimate{
		{Time: NewTimestamp(testStart), Temperature: 24.111, Humidity: 80},
		{Time: NewTimestamp(testStart.Add(6 * time.Hour)), Temperature: 31.456, Humidity: 60},
		{Time: NewTimestamp(testStart.Add(25 * time.Hour)), Temperature: 22, Humidity: 90},
	}

	days := AggregateClimateDaily(hours)

	require.Len(t, days, 2)
	assert.Equal(t, DailyClimate{Date: "2024-01-01", Weekday: "Mon", TempMax: 31.46, TempMin: 24.11}, days[0])
	assert.Equal(t, DailyClimate{Date: "2024-01-02", Weekday: "Tue", TempMax: 22, TempMin: 22}, days[1])
}
