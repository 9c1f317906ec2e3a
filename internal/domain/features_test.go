package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantSeries(start time.Time, n int) []Observation {
	obs := make([]Observation, n)
	for i := range obs {
		obs[i] = Observation{
			Time:          start.Add(time.Duration(i) * time.Hour),
			Humidity:      80,
			Precipitation: 0,
			Pressure:      1000,
			Temperature:   25,
			SolarRadiance: 50,
		}
	}
	return obs
}

// rampSeries increases temperature by 1 and drops pressure by 0.1 every hour.
func rampSeries(start time.Time, n int) []Observation {
	obs := constantSeries(start, n)
	for i := range obs {
		obs[i].Temperature = float64(i)
		obs[i].Pressure = 1000 - 0.1*float64(i)
	}
	return obs
}

func TestCalendarFeatures(t *testing.T) {
	noon := time.Date(2024, time.October, 1, 12, 0, 0, 0, time.UTC)
	f := CalendarFeatures(noon)

	assert.InDelta(t, 0.0, f[FeatureHourSin], 1e-9)
	assert.InDelta(t, -1.0, f[FeatureHourCos], 1e-9)
	assert.InDelta(t, math.Sin(2*math.Pi*10/12), f[FeatureMonthSin], 1e-9)
	assert.InDelta(t, math.Cos(2*math.Pi*10/12), f[FeatureMonthCos], 1e-9)
	assert.Equal(t, 1.0, f[FeatureMonsoon])
	assert.Equal(t, 1.0, f[FeatureTyphoonSeason])
}

func TestCalendarFeatures_SeasonBoundaries(t *testing.T) {
	tests := []struct {
		month   time.Month
		monsoon float64
		typhoon float64
	}{
		{time.January, 0, 0},
		{time.May, 0, 0},
		{time.June, 0, 1},
		{time.August, 0, 1},
		{time.September, 1, 1},
		{time.November, 1, 1},
		{time.December, 1, 0},
	}
	for _, tc := range tests {
		t.Run(tc.month.String(), func(t *testing.T) {
			f := CalendarFeatures(time.Date(2024, tc.month, 1, 0, 0, 0, 0, time.UTC))
			assert.Equal(t, tc.monsoon, f[FeatureMonsoon])
			assert.Equal(t, tc.typhoon, f[FeatureTyphoonSeason])
		})
	}
}

func TestBuildFeatures_ExcludesRowsWithoutLookback(t *testing.T) {
	obs := constantSeries(testStart, 30)

	rows := BuildFeatures(obs)

	require.Len(t, rows, 30-MaxLookback)
	assert.Equal(t, obs[MaxLookback].Time, rows[0].Time)
	for _, r := range rows {
		assert.True(t, r.Complete())
	}
}

func TestBuildFeatures_TooShortYieldsNothing(t *testing.T) {
	assert.Empty(t, BuildFeatures(constantSeries(testStart, MaxLookback)))
}

func TestBuildFeatures_GapExcludesDependentRows(t *testing.T) {
	obs := constantSeries(testStart, 60)
	// Remove hour 40; every row whose lags or windows touch it becomes incomplete.
	obs = append(obs[:40], obs[41:]...)

	rows := BuildFeatures(obs)

	for _, r := range rows {
		h := int(r.Time.Sub(testStart).Hours())
		touches := h >= 40 && h <= 40+MaxLookback
		assert.False(t, touches, "row at hour %d should have been excluded", h)
	}
	assert.NotEmpty(t, rows)
}

func TestDeriveFeatures_Values(t *testing.T) {
	obs := rampSeries(testStart, 48)
	rows := DeriveFeatures(obs)
	last := rows[len(rows)-1].Values

	assert.InDelta(t, 1.0, last["temp_1h"], 1e-9)
	assert.InDelta(t, 24.0, last["temp_24h"], 1e-9)
	assert.InDelta(t, 0.0, last["humidity_6h"], 1e-9)
	assert.InDelta(t, -0.6, last["pressure_6h"], 1e-9)
	assert.InDelta(t, 23.0, last["T2M_lag_24h"], 1e-9)

	// Mean of 42..47.
	assert.InDelta(t, 44.5, last["T2M_mean_6h"], 1e-9)
	// Sample std of six consecutive integers.
	assert.InDelta(t, math.Sqrt(3.5), last["T2M_std_6h"], 1e-9)
	assert.InDelta(t, 0.0, last["QV2M_std_24h"], 1e-9)

	assert.InDelta(t, 47.0-4.0, last[FeatureDewPoint], 1e-9)
	assert.InDelta(t, 4.0, last[FeatureTempDewDiff], 1e-9)
	assert.Equal(t, 1.0, last[FeatureDaytime])
	assert.Equal(t, 0.0, last[FeatureHighHumidity])
	assert.Equal(t, 1.0, last["pressure_drop_6h"])
	assert.Equal(t, 0.0, last["pressure_drop_3h"])
	assert.Equal(t, 1.0, last["pressure_drop_12h"])
	assert.InDelta(t, 47.0*80.0, last[FeatureTempHumidity], 1e-9)
	assert.InDelta(t, (1000-4.7)*47.0, last[FeaturePressureTemp], 1e-6)

	first := rows[0].Values
	assert.True(t, math.IsNaN(first["temp_1h"]))
	assert.True(t, math.IsNaN(first["T2M_mean_6h"]))
	assert.True(t, math.IsNaN(first[FeatureRainFavorable]))
	assert.InDelta(t, 0.0, first[FeatureDewPoint]+4.0, 1e-9)
}

func TestDeriveFeatures_RainFavorable(t *testing.T) {
	obs := constantSeries(testStart, 30)
	for i := range obs {
		obs[i].Humidity = 90
		obs[i].Pressure = 1000 - 0.1*float64(i)
	}

	rows := DeriveFeatures(obs)
	last := rows[len(rows)-1].Values

	// gap = (100 - 90) / 5 = 2 < 3, 6h pressure diff = -0.6 < -0.3.
	assert.Equal(t, 1.0, last[FeatureRainFavorable])
	assert.Equal(t, 1.0, last[FeatureHighHumidity])
}

func TestFeatureNames(t *testing.T) {
	names := FeatureNames()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.False(t, seen[n], "duplicate feature %s", n)
		seen[n] = true
		assert.True(t, IsKnownFeature(n))
	}
	assert.False(t, IsKnownFeature("wind_speed"))
	assert.True(t, IsRollingMean("PS_mean_24h"))
	assert.False(t, IsRollingMean("PS_std_24h"))
}

func TestFeatureRow_Vector(t *testing.T) {
	row := FeatureRow{Values: map[string]float64{"a": 1, "b": 2}}
	v := row.Vector([]string{"b", "a", "c"})
	assert.Equal(t, 2.0, v[0])
	assert.Equal(t, 1.0, v[1])
	assert.True(t, math.IsNaN(v[2]))
}
