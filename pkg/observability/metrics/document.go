package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of document store operations.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// documentOperationDuration tracks document store operation duration in seconds.
	// Labels: collection, operation, outcome
	documentOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "document_operation_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation", "outcome"},
	)

	// documentOperationsTotal tracks the total number of document store operations.
	// Labels: collection, operation, outcome
	documentOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"collection", "operation", "outcome"},
	)

	// documentCursorsOpen tracks result streams whose cursor has not been released yet.
	documentCursorsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "document_cursors_open",
			Help: "Current number of open document store cursors",
		},
	)
)

// RecordDocumentOperation records one document store operation. A non-nil err marks it as failed.
func RecordDocumentOperation(collection, operation string, err error, duration time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	documentOperationDuration.WithLabelValues(collection, operation, outcome).Observe(duration.Seconds())
	documentOperationsTotal.WithLabelValues(collection, operation, outcome).Inc()
}

// CursorOpened increments the open cursors gauge.
func CursorOpened() {
	documentCursorsOpen.Inc()
}

// CursorClosed decrements the open cursors gauge.
func CursorClosed() {
	documentCursorsOpen.Dec()
}
