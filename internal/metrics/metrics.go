package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Document, retrieval and model-call Prometheus metrics.
var (
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "uploads_total",
			Help:      "Total number of document uploads",
		},
		[]string{"status"}, // "ok" / "unsupported" / "invalid" / "index_error"
	)

	ActiveChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Name:      "active_chunks",
			Help:      "Number of chunks in the active document snapshot",
		},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // "lexical" / "dense" / "fusion"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "status"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "llm_requests_total",
			Help:      "Total number of chat completion attempts",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			UploadsTotal,
			ActiveChunks,
			RetrievalDuration,
			EmbeddingRequestsTotal,
			LLMRequestsTotal,
			LLMRequestDuration,
			HTTPRequestDuration,
			HTTPRequestsTotal,
		)
	})
}
