package power

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

const sampleExport = `-BEGIN HEADER-
NASA/POWER CERES/MERRA2 Native Resolution Hourly Data
Dates (month/day/year): 01/01/2024 through 01/01/2024 in LST
-END HEADER-
YEAR,MO,DY,HR,QV2M,PRECTOTCORR,PS,T2M,ALLSKY_SFC_PAR_TOT
2024,1,1,0,15.2,0.0,100.84,26.1,0.0
2024,1,1,1,15.4,0.12,100.81,25.8,-999
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.RawRow{
		Year: 2024, Month: 1, Day: 1, Hour: 0, Source: "power",
		Values: map[domain.Quantity]float64{
			domain.Humidity: 15.2, domain.Precipitation: 0, domain.Pressure: 100.84,
			domain.Temperature: 26.1, domain.SolarRadiance: 0,
		},
	}, rows[0])
	assert.NotContains(t, rows[1].Values, domain.SolarRadiance, "fill value is treated as missing")
	assert.Equal(t, 0.12, rows[1].Values[domain.Precipitation])
}

func TestReadCSV_WithoutHeaderBlockAndReorderedColumns(t *testing.T) {
	input := "YEAR,MO,DY,HR,T2M,QV2M\n2024,4,26,15,31.5,19.1\n"

	rows, err := ReadCSV(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 31.5, rows[0].Values[domain.Temperature])
	assert.Equal(t, 19.1, rows[0].Values[domain.Humidity])
	assert.Len(t, rows[0].Values, 2)
}

func TestReadCSV_NormalizesIntoObservations(t *testing.T) {
	obs, err := domain.Normalize(mustRead(t, sampleExport))

	require.NoError(t, err)
	require.Len(t, obs, 1, "the hour with a fill value is incomplete")
	assert.Equal(t, 26.1, obs[0].Temperature)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no header", "2024,1,1,0,1,2\n", "header"},
		{"missing key column", "YEAR,MO,DY,T2M\n2024,1,1,20\n", "HR"},
		{"bad hour", "YEAR,MO,DY,HR,T2M\n2024,1,1,x,20\n", "HR"},
		{"bad value", "YEAR,MO,DY,HR,T2M\n2024,1,1,0,warm\n", "T2M"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func mustRead(t *testing.T, input string) []domain.RawRow {
	t.Helper()
	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	return rows
}
