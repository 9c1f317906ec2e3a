// Command forecastctl runs one forecast over a NASA POWER hourly CSV export
// and prints the resulting run as JSON.
//
// Usage:
//
//	go run ./cmd/forecastctl \
//	  -csv data/power_hourly.csv \
//	  -rain-model data/models/rain/rain_model.json \
//	  -model-server http://localhost:8501
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/modelserver"
	"github.com/couchcryptid/weather-forecast-service/internal/adapter/power"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/couchcryptid/weather-forecast-service/internal/pipeline"
)

// csvSource serves rows parsed once from a local export.
type csvSource struct {
	rows []domain.RawRow
}

func (s csvSource) FetchObservations(context.Context) ([]domain.RawRow, error) {
	return s.rows, nil
}

func main() {
	csvPath := flag.String("csv", "", "NASA POWER hourly CSV export (required)")
	rainModel := flag.String("rain-model", "data/models/rain/rain_model.json", "rain classifier artifact")
	modelServer := flag.String("model-server", "", "sequence model server URL; empty skips temperature/humidity")
	model24h := flag.String("model-24h", "temp_humidity_24h", "24-hour sequence model name")
	model7d := flag.String("model-7d", "temp_humidity_7d", "7-day sequence model name")
	seed := flag.Uint64("seed", 0, "seed for the long-horizon perturbation; 0 picks one at random")
	logLevel := flag.String("log-level", "warn", "log level written to stderr")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*csvPath, *rainModel, *modelServer, *model24h, *model7d, *seed, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "forecastctl:", err)
		os.Exit(1)
	}
}

func run(csvPath, rainModel, modelServer, model24h, model7d string, seed uint64, logLevel string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewWriterLogger(os.Stderr, logLevel, "text")
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()
	rows, err := power.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", csvPath, err)
	}

	rain, err := model.LoadRainClassifier(rainModel)
	if err != nil {
		return err
	}

	fcOpts := []forecast.Option{forecast.WithFeatureCache(2)}
	if seed != 0 {
		fcOpts = append(fcOpts, forecast.WithSeed(seed))
	}
	forecaster := forecast.New(rain, logger, metrics, fcOpts...)

	var opts []pipeline.Option
	if modelServer != "" {
		client := modelserver.NewClient(modelServer, 30*time.Second, logger)
		opts = append(opts, pipeline.WithClimateModels(client.Model(model24h), client.Model(model7d)))
	}

	p := pipeline.New(csvSource{rows: rows}, forecaster, nil, logger, metrics, opts...)
	result, err := p.RunOnce(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
