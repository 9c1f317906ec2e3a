package firebase

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

const (
	keyLayout        = "20060102150405"
	lastUpdateLayout = "2006-01-02 15:04:05"
)

type tempReading struct {
	Temp *float64 `json:"temp"`
}

type humidityReading struct {
	Humidity *float64 `json:"humidity"`
}

type otherReading struct {
	Precipitation *float64 `json:"PRECTOTCORR"`
	Pressure      *float64 `json:"PS"`
	SolarRadiance *float64 `json:"ALLSKY_SFC_PAR_TOT"`
}

// currentReading is one entry of the current-conditions node. Pressure is
// reported in hPa.
type currentReading struct {
	LastUpdate    string   `json:"last_update"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"PRECTOTCORR"`
	Pressure      *float64 `json:"pressure"`
	SolarRadiance *float64 `json:"ALLSKY_SFC_PAR_TOT"`
}

// parseNode converts one node's JSON body to raw rows. It returns the
// number of entries skipped for a bad key or value.
func parseNode(node string, body []byte) ([]domain.RawRow, int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, 0, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, 0, err
	}

	switch node {
	case NodeTemp:
		rows, bad := parseKeyed(entries, "-temp", node, func(raw json.RawMessage) map[domain.Quantity]float64 {
			var r tempReading
			if json.Unmarshal(raw, &r) != nil || r.Temp == nil {
				return nil
			}
			return map[domain.Quantity]float64{domain.Temperature: *r.Temp}
		})
		return rows, bad, nil
	case NodeHumidity:
		rows, bad := parseKeyed(entries, "-humidity", node, func(raw json.RawMessage) map[domain.Quantity]float64 {
			var r humidityReading
			if json.Unmarshal(raw, &r) != nil || r.Humidity == nil {
				return nil
			}
			return map[domain.Quantity]float64{domain.Humidity: *r.Humidity}
		})
		return rows, bad, nil
	case NodeOther:
		rows, bad := parseKeyed(entries, "-other", node, func(raw json.RawMessage) map[domain.Quantity]float64 {
			var r otherReading
			if json.Unmarshal(raw, &r) != nil {
				return nil
			}
			return collect(map[domain.Quantity]*float64{
				domain.Precipitation: r.Precipitation,
				domain.Pressure:      r.Pressure,
				domain.SolarRadiance: r.SolarRadiance,
			})
		})
		return rows, bad, nil
	case NodeCurrent:
		rows, bad := parseCurrent(entries)
		return rows, bad, nil
	default:
		return nil, 0, nil
	}
}

// parseKeyed handles nodes keyed "YYYYMMDDhhmmss<suffix>".
func parseKeyed(entries map[string]json.RawMessage, suffix, source string, decode func(json.RawMessage) map[domain.Quantity]float64) ([]domain.RawRow, int) {
	rows := make([]domain.RawRow, 0, len(entries))
	bad := 0
	// Sorted keys make a later reading within the same hour win.
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		raw := entries[key]
		t, err := time.ParseInLocation(keyLayout, strings.TrimSuffix(key, suffix), time.UTC)
		if err != nil {
			bad++
			continue
		}
		values := decode(raw)
		if len(values) == 0 {
			bad++
			continue
		}
		rows = append(rows, domain.RawRowAt(t, source, values))
	}
	return rows, bad
}

// parseCurrent accepts either a single reading object or a map of them.
func parseCurrent(entries map[string]json.RawMessage) ([]domain.RawRow, int) {
	if _, single := entries["last_update"]; single {
		raw, _ := json.Marshal(entries)
		entries = map[string]json.RawMessage{"current": raw}
	}

	rows := make([]domain.RawRow, 0, len(entries))
	bad := 0
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		raw := entries[key]
		var r currentReading
		if json.Unmarshal(raw, &r) != nil || r.LastUpdate == "" {
			bad++
			continue
		}
		t, err := time.ParseInLocation(lastUpdateLayout, r.LastUpdate, time.UTC)
		if err != nil {
			bad++
			continue
		}
		var pressure *float64
		if r.Pressure != nil {
			pa := *r.Pressure * 100
			pressure = &pa
		}
		values := collect(map[domain.Quantity]*float64{
			domain.Temperature:   r.Temperature,
			domain.Humidity:      r.Humidity,
			domain.Precipitation: r.Precipitation,
			domain.Pressure:      pressure,
			domain.SolarRadiance: r.SolarRadiance,
		})
		rows = append(rows, domain.RawRowAt(t.Truncate(time.Hour), NodeCurrent, values))
	}
	return rows, bad
}

func collect(in map[domain.Quantity]*float64) map[domain.Quantity]float64 {
	out := make(map[domain.Quantity]float64, len(in))
	for q, v := range in {
		if v != nil {
			out[q] = *v
		}
	}
	return out
}
