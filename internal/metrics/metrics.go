// Package metrics provides Prometheus collectors for the chat pipeline and HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sercha_rag"

var (
	// HTTPRequestsTotal counts API requests.
	// Labels: method, route, status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by method and route pattern",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	// RetrievalDuration tracks how long a fan-out retrieval takes.
	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Duration of query embedding plus namespace fan-out in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RetrievalMatches tracks how many matches survive the threshold.
	RetrievalMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "matches",
			Help:      "Number of matches at or above the similarity threshold per retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// AnswersTotal counts chat answers.
	// Labels: outcome (generated, default, fallback)
	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Total chat answers by outcome",
		},
		[]string{"outcome"},
	)

	// IndexOperations counts vector index lifecycle calls.
	// Labels: operation (create_index, delete_index, index_document, remove_document), result (success, error)
	IndexOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vector",
			Name:      "operations_total",
			Help:      "Total vector index operations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// RecordHTTPRequest records one finished API request.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordRetrieval records the duration and size of one retrieval.
func RecordRetrieval(elapsed time.Duration, matches int) {
	RetrievalDuration.Observe(elapsed.Seconds())
	RetrievalMatches.Observe(float64(matches))
}

// RecordAnswer records the outcome of one chat answer.
func RecordAnswer(outcome string) {
	AnswersTotal.WithLabelValues(outcome).Inc()
}

// RecordIndexOperation records the result of a vector index operation.
func RecordIndexOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	IndexOperations.WithLabelValues(operation, result).Inc()
}
