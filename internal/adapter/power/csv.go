// Package power reads NASA POWER hourly point exports.
package power

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

// FillValue marks a missing measurement in POWER exports.
const FillValue = -999.0

var keyColumns = []string{"YEAR", "MO", "DY", "HR"}

// ReadCSV parses an hourly export into raw rows. The optional
// "-BEGIN HEADER-" block is skipped; the first line starting with YEAR is the
// column header. Fill values are left out of the row so the normalizer treats
// the quantity as missing.
func ReadCSV(r io.Reader) ([]domain.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var cols map[string]int
	var rows []domain.RawRow
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if cols == nil {
			if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "YEAR") {
				if cols, err = headerIndex(rec); err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
			}
			continue
		}

		row, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if cols == nil {
		return nil, errors.New("no YEAR,MO,DY,HR header found")
	}
	return rows, nil
}

func headerIndex(rec []string) (map[string]int, error) {
	cols := make(map[string]int, len(rec))
	for i, name := range rec {
		cols[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, key := range keyColumns {
		if _, ok := cols[key]; !ok {
			return nil, fmt.Errorf("header missing %s", key)
		}
	}
	return cols, nil
}

func parseRecord(rec []string, cols map[string]int) (domain.RawRow, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}

	key := make([]int, len(keyColumns))
	for i, name := range keyColumns {
		raw, _ := field(name)
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.RawRow{}, fmt.Errorf("invalid %s %q", name, raw)
		}
		key[i] = n
	}

	values := make(map[domain.Quantity]float64, len(domain.Quantities))
	for _, q := range domain.Quantities {
		raw, ok := field(string(q))
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.RawRow{}, fmt.Errorf("invalid %s %q", q, raw)
		}
		if v == FillValue {
			continue
		}
		values[q] = v
	}

	return domain.RawRow{
		Year:   key[0],
		Month:  key[1],
		Day:    key[2],
		Hour:   key[3],
		Source: "power",
		Values: values,
	}, nil
}
