package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for one
// forecast run across the collection, fusion, and validation concerns.
type Metrics struct {
	// C1 — fetcher.
	FetchRequests       *prometheus.CounterVec // labels: host, outcome={success,transient_error,security_error}
	FetchDuration       *prometheus.HistogramVec
	FetchRetries        prometheus.Counter
	RateLimiterWaitTime prometheus.Histogram

	// C2 — bundle manager.
	ArchiveExtractions *prometheus.CounterVec // labels: outcome={success,security_violation}
	BundleBytesWritten prometheus.Counter

	// C3 — agents.
	AgentRuns    *prometheus.CounterVec // labels: agent, outcome={success,partial,failed}
	AgentLatency *prometheus.HistogramVec

	// C4-C9 — processing/fusion.
	SpectralPeaksExtracted prometheus.Histogram
	StormsDetected         prometheus.Counter
	SwellEventsFused       prometheus.Counter
	ConfidenceOverall      prometheus.Histogram

	// C10-C14 — validation.
	DBRetries        prometheus.Counter
	DBTxDuration     prometheus.Histogram
	ValidationWindow *prometheus.HistogramVec // labels: reason={initial,adaptive_expand}

	// C15 — orchestrator.
	ForecastRunDuration prometheus.Histogram
	ForecastRunsTotal   *prometheus.CounterVec // labels: outcome={success,partial,failed}
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests, m.FetchDuration, m.FetchRetries, m.RateLimiterWaitTime,
		m.ArchiveExtractions, m.BundleBytesWritten,
		m.AgentRuns, m.AgentLatency,
		m.SpectralPeaksExtracted, m.StormsDetected, m.SwellEventsFused, m.ConfidenceOverall,
		m.DBRetries, m.DBTxDuration, m.ValidationWindow,
		m.ForecastRunDuration, m.ForecastRunsTotal,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a private registry, avoiding
// "already registered" panics across repeated test runs.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	const ns = "surfcastai"
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fetch_requests_total",
			Help:      "Fetch attempts by host and outcome.",
		}, []string{"host", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single fetch, including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host"}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "fetch_retries_total",
			Help:      "Total retry attempts across all fetches.",
		}),
		RateLimiterWaitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "rate_limiter_wait_seconds",
			Help:      "Time spent waiting for a host's rate limiter token.",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ArchiveExtractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "archive_extractions_total",
			Help:      "Archive extraction attempts by outcome.",
		}, []string{"outcome"}),
		BundleBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "bundle_bytes_written_total",
			Help:      "Total bytes written to bundle directories.",
		}),
		AgentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "agent_runs_total",
			Help:      "Collection agent runs by agent name and outcome.",
		}, []string{"agent", "outcome"}),
		AgentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "agent_latency_seconds",
			Help:      "Agent collection latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"agent"}),
		SpectralPeaksExtracted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "spectral_peaks_extracted",
			Help:      "Number of spectral peaks extracted per buoy reading.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		StormsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "storms_detected_total",
			Help:      "Total storms detected from pressure-chart prose.",
		}),
		SwellEventsFused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "swell_events_fused_total",
			Help:      "Total swell events produced by the fusion layer.",
		}),
		ConfidenceOverall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "confidence_overall",
			Help:      "Distribution of overall ConfidenceReport scores.",
			Buckets:   []float64{0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		DBRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "db_retries_total",
			Help:      "Total retried SQLite transactions.",
		}),
		DBTxDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "db_tx_duration_seconds",
			Help:      "Duration of BEGIN IMMEDIATE transactions.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ValidationWindow: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "validation_window_days",
			Help:      "Lookback window size used for validation queries.",
			Buckets:   []float64{7, 14, 21, 30},
		}, []string{"reason"}),
		ForecastRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "forecast_run_duration_seconds",
			Help:      "End-to-end duration of a forecast orchestration run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		ForecastRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "forecast_runs_total",
			Help:      "Forecast runs by outcome.",
		}, []string{"outcome"}),
	}
}
