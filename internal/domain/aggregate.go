package domain

import (
	"math"
	"time"
)

// Weather classification thresholds on the daily maximum rain probability
// (percent). Both are exclusive lower bounds.
const (
	RainyThreshold  = 70.0
	CloudyThreshold = 40.0
)

// ClassifyWeather maps a day's maximum rain probability to a WeatherClass.
func ClassifyWeather(maxProbability float64) WeatherClass {
	switch {
	case maxProbability > RainyThreshold:
		return Rainy
	case maxProbability > CloudyThreshold:
		return Cloudy
	default:
		return Sunny
	}
}

// dateGroups buckets items by calendar date, preserving the order in which
// each date first appears.
type dateGroups[T any] struct {
	order   []string
	weekday map[string]string
	items   map[string][]T
}

func groupByDate[T any](items []T, at func(T) time.Time) dateGroups[T] {
	g := dateGroups[T]{
		weekday: make(map[string]string),
		items:   make(map[string][]T),
	}
	for _, item := range items {
		t := at(item)
		date := t.Format(DateLayout)
		if _, seen := g.items[date]; !seen {
			g.order = append(g.order, date)
			g.weekday[date] = t.Format("Mon")
		}
		g.items[date] = append(g.items[date], item)
	}
	return g
}

// AggregateRainDaily reduces hourly rain predictions to one record per date
// with mean and max probability and a weather class.
func AggregateRainDaily(hours []HourlyRain) []DailyRain {
	g := groupByDate(hours, func(h HourlyRain) time.Time { return h.Time.Time() })

	out := make([]DailyRain, 0, len(g.order))
	for _, date := range g.order {
		group := g.items[date]
		sum, peak := 0.0, math.Inf(-1)
		for _, h := range group {
			sum += h.Probability
			peak = math.Max(peak, h.Probability)
		}
		out = append(out, DailyRain{
			Date:            date,
			Weekday:         g.weekday[date],
			MeanProbability: Round(sum/float64(len(group)), 1),
			MaxProbability:  Round(peak, 1),
			WeatherClass:    ClassifyWeather(peak),
		})
	}
	return out
}

// AggregateClimateDaily reduces hourly temperature predictions to per-date
// maximum and minimum.
func AggregateClimateDaily(hours []HourlyClimate) []DailyClimate {
	g := groupByDate(hours, func(h HourlyClimate) time.Time { return h.Time.Time() })

	out := make([]DailyClimate, 0, len(g.order))
	for _, date := range g.order {
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, h := range g.items[date] {
			hi = math.Max(hi, h.Temperature)
			lo = math.Min(lo, h.Temperature)
		}
		out = append(out, DailyClimate{
			Date:    date,
			Weekday: g.weekday[date],
			TempMax: Round(hi, 2),
			TempMin: Round(lo, 2),
		})
	}
	return out
}
