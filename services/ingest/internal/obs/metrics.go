package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the ingest
// pipeline.
type Metrics struct {
	CountiesProcessed prometheus.Counter
	ItemFailures      prometheus.Counter
	RecordsAttempted  prometheus.Counter
	RecordsInserted   prometheus.Counter
	SitesAttempted    prometheus.Counter
	SitesInserted     prometheus.Counter

	FetchDuration  prometheus.Histogram
	UpsertDuration prometheus.Histogram
	RunDuration    *prometheus.HistogramVec // label: job
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CountiesProcessed,
		m.ItemFailures,
		m.RecordsAttempted,
		m.RecordsInserted,
		m.SitesAttempted,
		m.SitesInserted,
		m.FetchDuration,
		m.UpsertDuration,
		m.RunDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// construct pipelines repeatedly without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CountiesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_ingest",
			Name:      "counties_processed_total",
			Help:      "County work items completed successfully.",
		}),
		ItemFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_ingest",
			Name:      "item_failures_total",
			Help:      "Work items that failed after fetch retries were exhausted.",
		}),
		RecordsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_ingest",
			Name:      "measurements_attempted_total",
			Help:      "Normalized measurement records submitted to the store.",
		}),
		RecordsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_ingest",
			Name:      "measurements_inserted_total",
			Help:      "Measurement rows genuinely new to the store.",
		}),
		SitesAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_ingest",
			Name:      "sites_attempted_total",
			Help:      "Monitoring-site records submitted to the store.",
		}),
		SitesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_ingest",
			Name:      "sites_inserted_total",
			Help:      "Monitoring-site rows genuinely new to the store.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gw_ingest",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration including retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		UpsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gw_ingest",
			Name:      "upsert_duration_seconds",
			Help:      "Store upsert duration per work item.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gw_ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a full pipeline run.",
			Buckets:   []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"job"}),
	}
}
