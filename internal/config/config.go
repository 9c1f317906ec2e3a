package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Remote observation store.
	FirebaseURL         string
	FirebaseAuth        string
	FirebaseTimeout     time.Duration
	FirebasePushEnabled bool

	ForecastInterval time.Duration
	FeatureCacheSize int

	// Models. An empty ModelServerURL disables the temperature/humidity path.
	RainModelPath  string
	ModelServerURL string
	Model24hName   string
	Model7dName    string
	ModelTimeout   time.Duration

	// Forecast sinks.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaForecastTopic string
	SQLiteEnabled      bool
	SQLitePath         string
	SQLiteKeepRuns     int
}

// Load reads configuration from environment variables, applying defaults
// where unset. Variables from ENV_FILE (default .env) are loaded first
// without overriding the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FirebaseURL:  sharedcfg.EnvOrDefault("FIREBASE_DATABASE_URL", ""),
		FirebaseAuth: sharedcfg.EnvOrDefault("FIREBASE_AUTH", ""),

		RainModelPath:  sharedcfg.EnvOrDefault("RAIN_MODEL_PATH", "data/models/rain/rain_model.json"),
		ModelServerURL: sharedcfg.EnvOrDefault("MODEL_SERVER_URL", ""),
		Model24hName:   sharedcfg.EnvOrDefault("MODEL_24H_NAME", "temp_humidity_24h"),
		Model7dName:    sharedcfg.EnvOrDefault("MODEL_7D_NAME", "temp_humidity_7d"),

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaForecastTopic: sharedcfg.EnvOrDefault("KAFKA_FORECAST_TOPIC", "weather-forecasts"),
		SQLitePath:         sharedcfg.EnvOrDefault("SQLITE_PATH", "forecasts.db"),
	}

	if cfg.FirebaseTimeout, err = parseDuration("FIREBASE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ForecastInterval, err = parseDuration("FORECAST_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.ModelTimeout, err = parseDuration("MODEL_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.FeatureCacheSize, err = parseNonNegativeInt("FEATURE_CACHE_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.SQLiteKeepRuns, err = parseNonNegativeInt("SQLITE_KEEP_RUNS", 1440); err != nil {
		return nil, err
	}
	if cfg.FirebasePushEnabled, err = parseBool("FIREBASE_PUSH_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.SQLiteEnabled, err = parseBool("SQLITE_ENABLED", true); err != nil {
		return nil, err
	}

	if cfg.FirebaseURL == "" {
		return nil, errors.New("FIREBASE_DATABASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaForecastTopic == "" {
		return nil, errors.New("KAFKA_FORECAST_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, strconv.Itoa(def)))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	b, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, strconv.FormatBool(def)))
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
