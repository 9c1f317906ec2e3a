package domain

import (
	"fmt"
	"maps"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Calendar and seasonal feature names. These are the only features a
// template-substituted forecast input recomputes for the target hour.
const (
	FeatureHourSin         = "hour_sin"
	FeatureHourCos         = "hour_cos"
	FeatureMonthSin        = "month_sin"
	FeatureMonthCos        = "month_cos"
	FeatureMonsoon         = "is_monsoon"
	FeatureTyphoonSeason   = "is_typhoon_season"
	FeatureDaytime         = "is_daytime"
	FeatureDewPoint        = "dew_point"
	FeatureTempDewDiff     = "temp_dew_diff"
	FeatureHighHumidity    = "high_humidity"
	FeatureRainFavorable   = "rain_favorable"
	FeatureTempHumidity    = "temp_humidity"
	FeaturePressureTemp    = "pressure_temp"
	highHumidityThreshold  = 85.0
	pressureDropThreshold  = -0.5
	daytimeSolarThreshold  = 10.0
	favorableHumidity      = 80.0
	favorableDewGap        = 3.0
	favorablePressureDelta = -0.3
)

// MaxLookback is how many hours before a row the widest feature reaches.
// A row needs MaxLookback earlier hours of history to be complete.
const MaxLookback = 24

var (
	// DiffLags are the hour offsets used for value-minus-earlier-value features.
	DiffLags = []int{1, 3, 6, 12, 24}
	// RollingWindows are the trailing window sizes, in hours, for mean/std features.
	RollingWindows = []int{6, 24}
	// PressureDropLags are the pressure-difference lags with a drop indicator.
	PressureDropLags = []int{3, 6, 12}

	diffParams = []struct {
		q      Quantity
		prefix string
	}{
		{Temperature, "temp"},
		{Humidity, "humidity"},
		{Pressure, "pressure"},
	}
	rollingParams = []Quantity{Temperature, Humidity, Pressure}

	featureNames = buildFeatureNames()
	knownFeature = func() map[string]bool {
		m := make(map[string]bool, len(featureNames))
		for _, n := range featureNames {
			m[n] = true
		}
		return m
	}()
)

// FeatureRow holds every derived feature for one hour. Undefined features
// are NaN.
type FeatureRow struct {
	Time   time.Time
	Values map[string]float64
}

// Complete reports whether every known feature is defined.
func (r FeatureRow) Complete() bool {
	for _, name := range featureNames {
		v, ok := r.Values[name]
		if !ok || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Vector returns the row's values ordered by names. Unknown names yield NaN.
func (r FeatureRow) Vector(names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := r.Values[name]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// FeatureNames returns the full, stable list of derived feature names.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// IsKnownFeature reports whether name is produced by BuildFeatures.
func IsKnownFeature(name string) bool {
	return knownFeature[name]
}

func diffName(prefix string, lag int) string { return fmt.Sprintf("%s_%dh", prefix, lag) }

func lagName(q Quantity, lag int) string { return fmt.Sprintf("%s_lag_%dh", q, lag) }

func rollingName(q Quantity, kind string, window int) string {
	return fmt.Sprintf("%s_%s_%dh", q, kind, window)
}

func pressureDropName(lag int) string { return fmt.Sprintf("pressure_drop_%dh", lag) }

// IsRollingMean reports whether name is a trailing-mean feature.
func IsRollingMean(name string) bool {
	for _, q := range rollingParams {
		for _, w := range RollingWindows {
			if name == rollingName(q, "mean", w) {
				return true
			}
		}
	}
	return false
}

func buildFeatureNames() []string {
	var names []string
	for _, q := range Quantities {
		names = append(names, string(q))
	}
	names = append(names,
		FeatureHourSin, FeatureHourCos, FeatureMonthSin, FeatureMonthCos,
		FeatureMonsoon, FeatureTyphoonSeason,
	)
	for _, p := range diffParams {
		for _, lag := range DiffLags {
			names = append(names, diffName(p.prefix, lag))
		}
	}
	for _, q := range rollingParams {
		names = append(names, lagName(q, MaxLookback))
		for _, w := range RollingWindows {
			names = append(names, rollingName(q, "mean", w), rollingName(q, "std", w))
		}
	}
	names = append(names, FeatureDewPoint, FeatureTempDewDiff, FeatureDaytime, FeatureHighHumidity)
	for _, lag := range PressureDropLags {
		names = append(names, pressureDropName(lag))
	}
	names = append(names, FeatureRainFavorable, FeatureTempHumidity, FeaturePressureTemp)
	return names
}

// CalendarFeatures computes the cyclical time encodings and fixed seasonal
// flags for t.
func CalendarFeatures(t time.Time) map[string]float64 {
	hour := float64(t.Hour())
	month := int(t.Month())
	return map[string]float64{
		FeatureHourSin:       math.Sin(2 * math.Pi * hour / 24),
		FeatureHourCos:       math.Cos(2 * math.Pi * hour / 24),
		FeatureMonthSin:      math.Sin(2 * math.Pi * float64(month) / 12),
		FeatureMonthCos:      math.Cos(2 * math.Pi * float64(month) / 12),
		FeatureMonsoon:       boolFloat(month >= 9 && month <= 12),
		FeatureTyphoonSeason: boolFloat(month >= 6 && month <= 11),
	}
}

// IsDaytimeHour is the calendar stand-in for the solar daytime flag, used
// for future hours where no radiation reading exists.
func IsDaytimeHour(t time.Time) bool {
	h := t.Hour()
	return h >= 6 && h < 18
}

// BuildFeatures derives every feature for obs and keeps only complete rows.
// obs must be sorted ascending with unique hours, as Normalize produces.
func BuildFeatures(obs []Observation) []FeatureRow {
	all := DeriveFeatures(obs)
	out := make([]FeatureRow, 0, len(all))
	for _, row := range all {
		if row.Complete() {
			out = append(out, row)
		}
	}
	return out
}

// DeriveFeatures computes one FeatureRow per observation, leaving features
// NaN where the lag or window source hours are missing.
func DeriveFeatures(obs []Observation) []FeatureRow {
	index := make(map[int64]int, len(obs))
	for i, o := range obs {
		index[o.Time.Unix()] = i
	}
	at := func(t time.Time) (Observation, bool) {
		i, ok := index[t.Unix()]
		if !ok {
			return Observation{}, false
		}
		return obs[i], true
	}

	rows := make([]FeatureRow, len(obs))
	for i, o := range obs {
		v := make(map[string]float64, len(featureNames))
		for _, q := range Quantities {
			v[string(q)] = o.Value(q)
		}
		maps.Copy(v, CalendarFeatures(o.Time))

		for _, p := range diffParams {
			for _, lag := range DiffLags {
				prev, ok := at(o.Time.Add(-time.Duration(lag) * time.Hour))
				v[diffName(p.prefix, lag)] = nanUnless(ok, o.Value(p.q)-prev.Value(p.q))
			}
		}

		for _, q := range rollingParams {
			prev, ok := at(o.Time.Add(-MaxLookback * time.Hour))
			v[lagName(q, MaxLookback)] = nanUnless(ok, prev.Value(q))

			for _, w := range RollingWindows {
				window, ok := trailingWindow(at, o.Time, w, q)
				if !ok {
					v[rollingName(q, "mean", w)] = math.NaN()
					v[rollingName(q, "std", w)] = math.NaN()
					continue
				}
				mean, std := stat.MeanStdDev(window, nil)
				v[rollingName(q, "mean", w)] = mean
				v[rollingName(q, "std", w)] = std
			}
		}

		dew := o.Temperature - (100-o.Humidity)/5
		gap := o.Temperature - dew
		v[FeatureDewPoint] = dew
		v[FeatureTempDewDiff] = gap
		v[FeatureDaytime] = boolFloat(o.SolarRadiance > daytimeSolarThreshold)
		v[FeatureHighHumidity] = boolFloat(o.Humidity > highHumidityThreshold)
		for _, lag := range PressureDropLags {
			d := v[diffName("pressure", lag)]
			v[pressureDropName(lag)] = nanUnless(!math.IsNaN(d), boolFloat(d < pressureDropThreshold))
		}
		p6 := v[diffName("pressure", 6)]
		v[FeatureRainFavorable] = nanUnless(!math.IsNaN(p6), boolFloat(
			o.Humidity > favorableHumidity && gap < favorableDewGap && p6 < favorablePressureDelta,
		))
		v[FeatureTempHumidity] = o.Temperature * o.Humidity
		v[FeaturePressureTemp] = o.Pressure * o.Temperature

		rows[i] = FeatureRow{Time: o.Time, Values: v}
	}
	return rows
}

// trailingWindow collects q over the w hours ending at t. It fails when any
// hour in the window is missing.
func trailingWindow(at func(time.Time) (Observation, bool), t time.Time, w int, q Quantity) ([]float64, bool) {
	out := make([]float64, 0, w)
	for k := w - 1; k >= 0; k-- {
		o, ok := at(t.Add(-time.Duration(k) * time.Hour))
		if !ok {
			return nil, false
		}
		out = append(out, o.Value(q))
	}
	return out, true
}

func nanUnless(ok bool, v float64) float64 {
	if !ok {
		return math.NaN()
	}
	return v
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
