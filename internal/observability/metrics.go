package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition engine.
type Metrics struct {
	Acquisitions *prometheus.CounterVec // labels: mode={IMAGE_PRODUCT,RAW_DATA}, outcome={success,failure}
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	SourceAttempts *prometheus.CounterVec   // labels: source, outcome={success,transient,permanent,corrupt}
	FetchDuration  *prometheus.HistogramVec // labels: source

	BatchSize     prometheus.Histogram
	EngineReady   prometheus.Gauge
	WindowOffsets prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goes_imagery",
			Name:      "acquisitions_total",
			Help:      "Completed acquisitions by mode and outcome.",
		}, []string{"mode", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goes_imagery",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		SourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goes_imagery",
			Name:      "source_attempts_total",
			Help:      "Per-source cascade attempts by outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goes_imagery",
			Name:      "fetch_duration_seconds",
			Help:      "Source fetch duration in seconds, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goes_imagery",
			Name:      "batch_size",
			Help:      "Number of requests per batch acquisition.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goes_imagery",
			Name:      "engine_ready",
			Help:      "1 when the engine can write output imagery, 0 otherwise.",
		}),
		WindowOffsets: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goes_imagery",
			Name:      "raw_window_offset_hours",
			Help:      "Absolute hour offset of the window that satisfied a raw-data search.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		}),
	}

	prometheus.MustRegister(
		m.Acquisitions,
		m.CacheLookups,
		m.SourceAttempts,
		m.FetchDuration,
		m.BatchSize,
		m.EngineReady,
		m.WindowOffsets,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Acquisitions:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "goes_imagery", Name: "acquisitions_total"}, []string{"mode", "outcome"}),
		CacheLookups:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "goes_imagery", Name: "cache_lookups_total"}, []string{"result"}),
		SourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "goes_imagery", Name: "source_attempts_total"}, []string{"source", "outcome"}),
		FetchDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "goes_imagery", Name: "fetch_duration_seconds"}, []string{"source"}),
		BatchSize:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "goes_imagery", Name: "batch_size"}),
		EngineReady:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "goes_imagery", Name: "engine_ready"}),
		WindowOffsets:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "goes_imagery", Name: "raw_window_offset_hours"}),
	}
}
