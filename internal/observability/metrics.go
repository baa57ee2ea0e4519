// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupReviewsTotal counts moderation decisions by decision and outcome.
	GroupReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amor_group_reviews_total",
		Help: "Total number of group review decisions",
	}, []string{"decision", "outcome"})

	// GroupSubmissionsTotal counts group submissions by outcome.
	GroupSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amor_group_submissions_total",
		Help: "Total number of group submissions",
	}, []string{"outcome"})

	// GroupRollsTotal counts served rolls by kind.
	GroupRollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amor_group_rolls_total",
		Help: "Total number of group rolls served",
	}, []string{"roll_type", "result"})

	// ObjectStoreOperations counts object store calls by operation and outcome.
	ObjectStoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amor_object_store_operations_total",
		Help: "Total number of object store operations",
	}, []string{"operation", "outcome"})

	// NotificationsPublished counts realtime notification fan-outs.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amor_notifications_published_total",
		Help: "Total number of notifications published to realtime channels",
	}, []string{"type", "outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amor_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// Outcome maps an error to the outcome label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
