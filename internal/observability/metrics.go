// Package observability exposes Prometheus metrics for the jornada
// subsystem.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jornada_service",
		Subsystem: "production",
		Name:      "activities_registered_total",
		Help:      "Number of activities registered and attached to a jornada.",
	})
	activitiesMoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jornada_service",
		Subsystem: "production",
		Name:      "activities_moved_total",
		Help:      "Number of activities refiled to a different calendar day.",
	})
	conflictRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jornada_service",
		Subsystem: "store",
		Name:      "jornada_conflict_retries_total",
		Help:      "Number of optimistic-concurrency retries on jornada updates.",
	})
	reconcileRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jornada_service",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Number of completed reconcile passes.",
	})
	reconcileResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jornada_service",
		Subsystem: "reconcile",
		Name:      "inconsistencies_resolved_total",
		Help:      "Inconsistencies repaired across all reconcile passes.",
	})
	reconcileUnresolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jornada_service",
		Subsystem: "reconcile",
		Name:      "inconsistencies_unresolved_total",
		Help:      "Inconsistencies reported but not repaired.",
	})
	lastReconcileGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jornada_service",
		Subsystem: "reconcile",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed reconcile pass.",
	})
)

func init() {
	prometheus.MustRegister(
		activitiesRegistered,
		activitiesMoved,
		conflictRetries,
		reconcileRuns,
		reconcileResolved,
		reconcileUnresolved,
		lastReconcileGauge,
	)
}

// RecordActivityRegistered counts a successful registration.
func RecordActivityRegistered() { activitiesRegistered.Inc() }

// RecordActivityMoved counts a cross-day refile.
func RecordActivityMoved() { activitiesMoved.Inc() }

// RecordConflictRetry counts an optimistic-lock retry.
func RecordConflictRetry() { conflictRetries.Inc() }

// RecordReconcileRun records the outcome of a reconcile pass.
func RecordReconcileRun(resolved, unresolved int, finished time.Time) {
	reconcileRuns.Inc()
	reconcileResolved.Add(float64(resolved))
	reconcileUnresolved.Add(float64(unresolved))
	if !finished.IsZero() {
		lastReconcileGauge.Set(float64(finished.Unix()))
	}
}
