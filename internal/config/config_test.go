package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFirebaseURL = "https://weather-test.firebaseio.com"

// baseEnv sets the only required variable and points ENV_FILE somewhere empty
// so a developer's .env does not leak into the assertions.
func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FIREBASE_DATABASE_URL", testFirebaseURL)
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	baseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testFirebaseURL, cfg.FirebaseURL)
	assert.Empty(t, cfg.FirebaseAuth)
	assert.Equal(t, 10*time.Second, cfg.FirebaseTimeout)
	assert.True(t, cfg.FirebasePushEnabled)
	assert.Equal(t, time.Minute, cfg.ForecastInterval)
	assert.Equal(t, 16, cfg.FeatureCacheSize)
	assert.Equal(t, "data/models/rain/rain_model.json", cfg.RainModelPath)
	assert.Empty(t, cfg.ModelServerURL)
	assert.Equal(t, "temp_humidity_24h", cfg.Model24hName)
	assert.Equal(t, "temp_humidity_7d", cfg.Model7dName)
	assert.Equal(t, 10*time.Second, cfg.ModelTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "weather-forecasts", cfg.KafkaForecastTopic)
	assert.True(t, cfg.SQLiteEnabled)
	assert.Equal(t, "forecasts.db", cfg.SQLitePath)
	assert.Equal(t, 1440, cfg.SQLiteKeepRuns)
}

func TestLoad_CustomEnv(t *testing.T) {
	baseEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FIREBASE_AUTH", "secret")
	t.Setenv("FIREBASE_TIMEOUT", "3s")
	t.Setenv("FIREBASE_PUSH_ENABLED", "false")
	t.Setenv("FORECAST_INTERVAL", "5m")
	t.Setenv("FEATURE_CACHE_SIZE", "0")
	t.Setenv("RAIN_MODEL_PATH", "/models/rain.json")
	t.Setenv("MODEL_SERVER_URL", "http://tfserving:8501")
	t.Setenv("MODEL_24H_NAME", "th24")
	t.Setenv("MODEL_7D_NAME", "th7")
	t.Setenv("MODEL_TIMEOUT", "2s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_FORECAST_TOPIC", "custom-forecasts")
	t.Setenv("SQLITE_ENABLED", "false")
	t.Setenv("SQLITE_PATH", "/var/lib/forecasts.db")
	t.Setenv("SQLITE_KEEP_RUNS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "secret", cfg.FirebaseAuth)
	assert.Equal(t, 3*time.Second, cfg.FirebaseTimeout)
	assert.False(t, cfg.FirebasePushEnabled)
	assert.Equal(t, 5*time.Minute, cfg.ForecastInterval)
	assert.Zero(t, cfg.FeatureCacheSize)
	assert.Equal(t, "/models/rain.json", cfg.RainModelPath)
	assert.Equal(t, "http://tfserving:8501", cfg.ModelServerURL)
	assert.Equal(t, "th24", cfg.Model24hName)
	assert.Equal(t, "th7", cfg.Model7dName)
	assert.Equal(t, 2*time.Second, cfg.ModelTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-forecasts", cfg.KafkaForecastTopic)
	assert.False(t, cfg.SQLiteEnabled)
	assert.Equal(t, "/var/lib/forecasts.db", cfg.SQLitePath)
	assert.Equal(t, 10, cfg.SQLiteKeepRuns)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FIREBASE_DATABASE_URL=https://from-file.firebaseio.com\nMODEL_24H_NAME=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv does not override variables already present in the process.
	t.Setenv("MODEL_24H_NAME", "from-env")
	// Registers a restore on cleanup, then clears the variable so the file wins.
	t.Setenv("FIREBASE_DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("FIREBASE_DATABASE_URL"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://from-file.firebaseio.com", cfg.FirebaseURL)
	assert.Equal(t, "from-env", cfg.Model24hName)
}

func TestLoad_MissingFirebaseURL(t *testing.T) {
	baseEnv(t)
	t.Setenv("FIREBASE_DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIREBASE_DATABASE_URL")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	baseEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FIREBASE_TIMEOUT", "bad"},
		{"FORECAST_INTERVAL", "0s"},
		{"FORECAST_INTERVAL", "-1m"},
		{"MODEL_TIMEOUT", "soon"},
		{"FEATURE_CACHE_SIZE", "-1"},
		{"FEATURE_CACHE_SIZE", "many"},
		{"SQLITE_KEEP_RUNS", "x"},
		{"FIREBASE_PUSH_ENABLED", "maybe"},
		{"KAFKA_ENABLED", "yes please"},
		{"SQLITE_ENABLED", "nope"},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			baseEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	baseEnv(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
