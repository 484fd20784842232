// Package observability exposes the supervisor's Prometheus metrics.
// Everything is registered on the default registry and served by the
// /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Firing kinds for FiringsTotal.
const (
	FiringKindWarning = "warning"
	FiringKindFinal   = "final"
	FiringKindRefire  = "refire"
)

// Check-in results for CheckinsTotal.
const (
	CheckinResultOK           = "ok"
	CheckinResultUnauthorized = "unauthorized"
	CheckinResultError        = "error"
)

var (
	// SchedulerTicks counts completed watchdog ticks.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_scheduler_ticks_total",
		Help: "Total number of completed watchdog ticks",
	})

	// SchedulerTickDuration tracks how long one full tick takes; slow action
	// drivers stretch the tick cadence, which this makes visible.
	SchedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_scheduler_tick_duration_seconds",
		Help:    "Duration of one watchdog tick, action execution included",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	// FiringsTotal counts warning, final, and re-fire events.
	FiringsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_firings_total",
		Help: "Total number of firing decisions, by kind",
	}, []string{"kind"})

	// ActionExecutions counts finished action runs by driver and outcome.
	ActionExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_action_executions_total",
		Help: "Total number of finished action executions",
	}, []string{"action_type", "status"})

	// SwitchesByStatus tracks the current switch population.
	SwitchesByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinel_switches",
		Help: "Current number of switches in each status",
	}, []string{"status"})

	// CheckinsTotal counts check-in attempts by result.
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_checkins_total",
		Help: "Total number of check-in attempts, by result",
	}, []string{"result"})

	// OrphanedExecutionsReaped counts running execution records failed at
	// startup by crash recovery.
	OrphanedExecutionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_orphaned_executions_reaped_total",
		Help: "Total number of orphaned execution records reaped at startup",
	})
)
