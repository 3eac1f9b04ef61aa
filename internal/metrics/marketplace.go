package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and ingestion Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bazar",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bazar",
			Name:      "search_results",
			Help:      "Number of matches returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bazar",
			Name:      "ingest_jobs_total",
			Help:      "Finished ingestion jobs by outcome",
		},
		[]string{"status"}, // "completed" / "failed"
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bazar",
			Name:      "worker_queue_depth",
			Help:      "Ingestion jobs waiting in the dispatch queue",
		},
	)
)

var marketplaceMetricsRegistered bool

// RegisterMarketplaceMetrics registers search and ingestion metrics. Must be called once from main.
func RegisterMarketplaceMetrics() {
	if marketplaceMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(IngestJobsTotal)
	prometheus.MustRegister(WorkerQueueDepth)
	marketplaceMetricsRegistered = true
}
