package firebase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

const testAuth = "secret-token"

func testClient(baseURL string) (*Client, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewClient(baseURL, testAuth, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

// fakeDatabase serves fixed node bodies and records writes.
type fakeDatabase struct {
	mu     sync.Mutex
	nodes  map[string]string
	status map[string]int
	writes []string
	bodies map[string][]byte
}

func (f *fakeDatabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	node := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
	if r.URL.Query().Get("auth") != testAuth {
		http.Error(w, "Permission denied", http.StatusUnauthorized)
		return
	}
	if code, ok := f.status[node]; ok {
		w.WriteHeader(code)
		return
	}

	switch r.Method {
	case http.MethodGet:
		body, ok := f.nodes[node]
		if !ok {
			body = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	default:
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, r.Method+" "+node)
		if f.bodies == nil {
			f.bodies = make(map[string][]byte)
		}
		if r.Method == http.MethodPatch {
			f.bodies[node] = data
		}
		f.mu.Unlock()
		_, _ = io.WriteString(w, "null")
	}
}

func TestFetchObservations_JoinsNodes(t *testing.T) {
	db := &fakeDatabase{nodes: map[string]string{
		NodeTemp: `{
			"20240101100000-temp": {"temp": 24.5},
			"20240101103000-temp": {"temp": 25.0},
			"20240101110000-temp": {"temp": 26.0},
			"garbage-temp": {"temp": 1}
		}`,
		NodeHumidity: `{"20240101100500-humidity": {"humidity": 81}}`,
		NodeOther:    `{"20240101100000-other": {"PRECTOTCORR": 0.1, "PS": 100800, "ALLSKY_SFC_PAR_TOT": 120}}`,
		NodeCurrent:  `{"last_update": "2024-01-01 11:42:10", "temperature": 27.5, "humidity": 70, "pressure": 1009.5, "PRECTOTCORR": 0, "ALLSKY_SFC_PAR_TOT": 300}`,
	}}
	srv := httptest.NewServer(db)
	defer srv.Close()

	c, m := testClient(srv.URL + "/")
	rows, err := c.FetchObservations(context.Background())
	require.NoError(t, err)

	obs, err := domain.Normalize(rows)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), obs[0].Time)
	assert.Equal(t, 25.0, obs[0].Temperature, "later reading in the hour wins")
	assert.Equal(t, 81.0, obs[0].Humidity)
	assert.Equal(t, 100800.0, obs[0].Pressure)

	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), obs[1].Time)
	assert.Equal(t, 27.5, obs[1].Temperature, "current conditions override the temp node")
	assert.InDelta(t, 100950.0, obs[1].Pressure, 1e-9, "hPa converted to Pa")

	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchRequests.WithLabelValues(NodeTemp, "success")), 0)
}

func TestFetchObservations_EmptyDatabase(t *testing.T) {
	srv := httptest.NewServer(&fakeDatabase{})
	defer srv.Close()

	c, _ := testClient(srv.URL)
	rows, err := c.FetchObservations(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rows)
	_, err = domain.Normalize(rows)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestFetchObservations_NodeFailure(t *testing.T) {
	srv := httptest.NewServer(&fakeDatabase{status: map[string]int{NodeHumidity: http.StatusForbidden}})
	defer srv.Close()

	c, m := testClient(srv.URL)
	_, err := c.FetchObservations(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), NodeHumidity)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchRequests.WithLabelValues(NodeHumidity, "error")), 0)
}

func TestParseCurrent_MapOfReadings(t *testing.T) {
	body := []byte(`{
		"a": {"last_update": "2024-03-01 08:15:00", "temperature": 22},
		"b": {"last_update": "not a time", "temperature": 23},
		"c": {"temperature": 24}
	}`)

	rows, bad, err := parseNode(NodeCurrent, body)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, bad)
	assert.Equal(t, 8, rows[0].Hour)
	assert.Equal(t, 22.0, rows[0].Values[domain.Temperature])
}

func TestParseNode_NullValuesSkipped(t *testing.T) {
	rows, bad, err := parseNode(NodeOther, []byte(`{"20240101100000-other": {"PRECTOTCORR": null, "PS": 100800}}`))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, bad)
	_, hasPrecip := rows[0].Values[domain.Precipitation]
	assert.False(t, hasPrecip)
}

func TestPublish_DeleteThenPatch(t *testing.T) {
	db := &fakeDatabase{}
	srv := httptest.NewServer(db)
	defer srv.Close()

	c, _ := testClient(srv.URL)
	run := domain.ForecastRun{
		ID:          "run-1",
		GeneratedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		RainHourly:  []domain.HourlyRain{{Time: domain.NewTimestamp(time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)), Hour: 1, Probability: 12.5, Label: domain.NoRain}},
		RainDaily:   []domain.DailyRain{{Date: "2024-01-02", Weekday: "Tue", WeatherClass: domain.Sunny}},
	}

	require.NoError(t, c.Publish(context.Background(), run))

	assert.Equal(t, []string{
		"DELETE " + Node24h, "PATCH " + Node24h,
		"DELETE " + Node7d, "PATCH " + Node7d,
	}, db.writes)

	var payload struct {
		RunID       string              `json:"run_id"`
		GeneratedAt string              `json:"generated_time"`
		Forecast    []domain.HourlyRain `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(db.bodies[Node24h], &payload))
	assert.Equal(t, "run-1", payload.RunID)
	assert.Equal(t, "2024-01-01 12:00:00", payload.GeneratedAt)
	require.Len(t, payload.Forecast, 1)
	assert.Equal(t, 12.5, payload.Forecast[0].Probability)
}

func TestPush_StopsOnDeleteFailure(t *testing.T) {
	db := &fakeDatabase{status: map[string]int{Node24h: http.StatusBadRequest}}
	srv := httptest.NewServer(db)
	defer srv.Close()

	c, _ := testClient(srv.URL)
	err := c.Push(context.Background(), Node24h, map[string]string{"a": "b"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete")
	assert.Empty(t, db.writes)
}
