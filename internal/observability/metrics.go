package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for the forecast pipeline.
type Metrics struct {
	RunsTotal              *prometheus.CounterVec // labels: outcome={success,partial,error}
	RunDuration            prometheus.Histogram
	ObservationsNormalized prometheus.Gauge
	PipelineRunning        prometheus.Gauge

	// Forecast path metrics. path={rain_24h,rain_7d,climate_24h,climate_7d}
	InferenceFailures   *prometheus.CounterVec
	InsufficientHistory *prometheus.CounterVec
	PredictionsTotal    *prometheus.CounterVec

	// Adapter metrics.
	PublishErrors *prometheus.CounterVec // labels: sink
	FetchRequests *prometheus.CounterVec // labels: node, outcome={success,error}
	FeatureCache  *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all pipeline metrics and registers them with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ObservationsNormalized,
		m.PipelineRunning,
		m.InferenceFailures,
		m.InsufficientHistory,
		m.PredictionsTotal,
		m.PublishErrors,
		m.FetchRequests,
		m.FeatureCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Forecast runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-forecast-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ObservationsNormalized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "observations_normalized",
			Help:      "Complete hourly observations available to the last run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
		InferenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_failures_total",
			Help:      "Model inference failures by forecast path.",
		}, []string{"path"}),
		InsufficientHistory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_history_total",
			Help:      "Forecasts skipped for lack of history, by forecast path.",
		}, []string{"path"}),
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Forecast records produced by forecast path.",
		}, []string{"path"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publishes by sink.",
		}, []string{"sink"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Remote store reads by node and outcome.",
		}, []string{"node", "outcome"}),
		FeatureCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_cache_total",
			Help:      "Feature table cache lookups by result.",
		}, []string{"result"}),
	}
}
