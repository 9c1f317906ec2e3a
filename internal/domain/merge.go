package domain

// MergeHourly left-joins rain predictions onto the temperature/humidity
// forecast by exact timestamp. Hours without a rain entry get probability 0
// and NO_RAIN.
func MergeHourly(climate []HourlyClimate, rain []HourlyRain) []MergedHourly {
	byTime := make(map[int64]HourlyRain, len(rain))
	for _, r := range rain {
		byTime[r.Time.Time().Unix()] = r
	}

	out := make([]MergedHourly, 0, len(climate))
	for _, c := range climate {
		m := MergedHourly{
			Time:        c.Time,
			Temperature: c.Temperature,
			Humidity:    c.Humidity,
			RainLabel:   NoRain,
		}
		if r, ok := byTime[c.Time.Time().Unix()]; ok {
			m.RainProbability = r.Probability
			m.RainLabel = r.Label
		}
		out = append(out, m)
	}
	return out
}

// MergeDaily left-joins daily rain summaries onto daily temperature
// summaries by date. Dates without a rain entry get probability 0 and the
// class that probability implies.
func MergeDaily(climate []DailyClimate, rain []DailyRain) []MergedDaily {
	byDate := make(map[string]DailyRain, len(rain))
	for _, r := range rain {
		byDate[r.Date] = r
	}

	out := make([]MergedDaily, 0, len(climate))
	for _, c := range climate {
		m := MergedDaily{
			Date:         c.Date,
			Weekday:      c.Weekday,
			TempMax:      c.TempMax,
			TempMin:      c.TempMin,
			WeatherClass: ClassifyWeather(0),
		}
		if r, ok := byDate[c.Date]; ok {
			m.RainProbability = r.MeanProbability
			m.MaxRainProbability = r.MaxProbability
			m.WeatherClass = r.WeatherClass
		}
		out = append(out, m)
	}
	return out
}
