package metrics

import "github.com/prometheus/client_golang/prometheus"

// Vector index and retrieval Prometheus metrics.
var (
	IndexVectors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vecrag",
			Name:      "index_vectors",
			Help:      "Number of vectors currently held by the index",
		},
	)

	IndexSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vecrag",
			Name:      "index_search_duration_seconds",
			Help:      "Exhaustive index scan duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	IndexPersistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecrag",
			Name:      "index_persist_total",
			Help:      "Index snapshot saves by outcome",
		},
		[]string{"status"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecrag",
			Name:      "queries_total",
			Help:      "Answered queries by outcome",
		},
		[]string{"outcome"}, // "answered" / "no_hits" / "error"
	)

	DocumentsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecrag",
			Name:      "documents_ingested_total",
			Help:      "Documents processed by the ingestion pipeline",
		},
		[]string{"status"},
	)
)

var registered bool

// Register registers the embedding, generation and index metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		IndexVectors,
		IndexSearchDuration,
		IndexPersistTotal,
		QueriesTotal,
		DocumentsIngestedTotal,
	)
	registered = true
}
