// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fluxo"

// Snapshot outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeConfigError   = "config_error"
	OutcomeLedgerError   = "ledger_error"
	OutcomeInternalError = "internal_error"
)

// Ledger event directions.
const (
	DirectionPublished = "published"
	DirectionConsumed  = "consumed"
	DirectionFailed    = "failed"
)

var SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "snapshots_total",
	Help:      "Snapshot computations by outcome.",
}, []string{"outcome"})

var SnapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "snapshot_duration_seconds",
	Help:      "Time spent computing a snapshot, ledger load included.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
})

var EntriesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "entries_skipped_total",
	Help:      "Ledger entries dropped by the normalizer, by reason.",
}, []string{"reason"})

var SnapshotCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "snapshot_cache_total",
	Help:      "Snapshot cache lookups by result (hit, miss, invalidate).",
}, []string{"result"})

var LedgerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "ledger_events_total",
	Help:      "Ledger-changed messages by direction.",
}, []string{"direction"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern and status code.",
}, []string{"route", "status"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the per-client rate limiter.",
})

var SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Requests matching a known attack pattern.",
})

// ObserveSnapshot records one computation.
func ObserveSnapshot(outcome string, started time.Time) {
	SnapshotsTotal.WithLabelValues(outcome).Inc()
	SnapshotDuration.Observe(time.Since(started).Seconds())
}

// ObserveSkipped counts skipped entries per reason.
func ObserveSkipped[R ~string](reasons []R) {
	for _, r := range reasons {
		EntriesSkipped.WithLabelValues(string(r)).Inc()
	}
}
