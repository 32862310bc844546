// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels besides the failure categories.
const (
	OutcomeSuccess = "success"
)

var (
	// GatewayOutcomesTotal counts terminal request outcomes per gateway operation.
	GatewayOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaultflow",
			Subsystem: "gateway",
			Name:      "outcomes_total",
			Help:      "Gateway operations by terminal outcome (success or failure category)",
		},
		[]string{"operation", "outcome"},
	)

	// GatewayBackendSeconds observes the latency of the single backend call per request.
	GatewayBackendSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vaultflow",
			Subsystem: "gateway",
			Name:      "backend_seconds",
			Help:      "Latency of backend calls issued by the gateway",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// AuditFailuresTotal counts audit events that could not be persisted.
	AuditFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vaultflow",
			Subsystem: "audit",
			Name:      "failures_total",
			Help:      "Audit events dropped because the sink returned an error",
		},
	)
)

func init() {
	prometheus.MustRegister(
		GatewayOutcomesTotal,
		GatewayBackendSeconds,
		AuditFailuresTotal,
	)
}

// RecordOutcome increments the outcome counter for operation.
func RecordOutcome(operation, outcome string) {
	GatewayOutcomesTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveBackend records how long a backend call took.
func ObserveBackend(operation string, started time.Time) {
	GatewayBackendSeconds.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
