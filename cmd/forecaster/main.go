package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/firebase"
	httpadapter "github.com/couchcryptid/weather-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-service/internal/adapter/modelserver"
	"github.com/couchcryptid/weather-forecast-service/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-forecast-service/internal/config"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/couchcryptid/weather-forecast-service/internal/pipeline"
	"github.com/couchcryptid/weather-forecast-service/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rain, err := model.LoadRainClassifier(cfg.RainModelPath)
	if err != nil {
		logger.Error("failed to load rain model", "error", err)
		os.Exit(1)
	}
	logger.Info("rain model loaded", "path", cfg.RainModelPath, "features", len(rain.FeatureNames()), "threshold", rain.Threshold())

	forecaster := forecast.New(rain, logger, metrics, forecast.WithFeatureCache(cfg.FeatureCacheSize))
	remote := firebase.NewClient(cfg.FirebaseURL, cfg.FirebaseAuth, cfg.FirebaseTimeout, logger, metrics)

	var opts []pipeline.Option
	if cfg.ModelServerURL != "" {
		models := modelserver.NewClient(cfg.ModelServerURL, cfg.ModelTimeout, logger)
		opts = append(opts, pipeline.WithClimateModels(models.Model(cfg.Model24hName), models.Model(cfg.Model7dName)))
		logger.Info("temperature/humidity forecasts enabled", "model_server", cfg.ModelServerURL)
	} else {
		logger.Info("temperature/humidity forecasts disabled")
	}

	// Sinks, in publish order.
	var sinks []pipeline.Sink
	var store *sqlite.Store
	if cfg.SQLiteEnabled {
		store, err = sqlite.Open(ctx, cfg.SQLitePath, cfg.SQLiteKeepRuns, logger)
		if err != nil {
			logger.Error("failed to open forecast store", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, store)
	}
	if cfg.FirebasePushEnabled {
		sinks = append(sinks, remote)
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaForecastTopic)
	}

	p := pipeline.New(remote, forecaster, sinks, logger, metrics, opts...)
	sched := scheduler.New(p, cfg.ForecastInterval, logger, metrics)

	var forecasts httpadapter.ForecastSource = p
	var history httpadapter.HistorySource
	if store != nil {
		forecasts, history = store, store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, forecasts, history, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start periodic forecasts.
	if err := sched.Start(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		stop()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("forecast store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
