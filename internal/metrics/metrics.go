// Package metrics defines the Prometheus collectors exported by switchboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Creation outcomes.
const (
	OutcomeAssigned = "assigned"
	OutcomeQueued   = "queued"
)

// Reclaim outcomes.
const (
	OutcomeReassigned = "reassigned"
	OutcomeRequeued   = "requeued"
	OutcomeSkipped    = "skipped"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsCreated      *prometheus.CounterVec
	RequestTransitions   *prometheus.CounterVec
	SchedulerReclaims    *prometheus.CounterVec
	SchedulerTickFailure prometheus.Counter
	SchedulerLockSkipped prometheus.Counter
	AgentsPenalized      prometheus.Counter
	TickDuration         prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_requests_created_total",
			Help: "Total number of support requests created, by initial outcome",
		}, []string{"outcome"}),
		RequestTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_requests_transitions_total",
			Help: "Total number of request lifecycle operations applied",
		}, []string{"op"}),
		SchedulerReclaims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "switchboard_scheduler_reclaims_total",
			Help: "Total number of stale assignments handled by the scheduler",
		}, []string{"outcome"}),
		SchedulerTickFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "switchboard_scheduler_tick_failures_total",
			Help: "Total number of per-request failures during scheduler ticks",
		}),
		SchedulerLockSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "switchboard_scheduler_lock_skipped_total",
			Help: "Total number of ticks skipped because another instance held the lock",
		}),
		AgentsPenalized: f.NewCounter(prometheus.CounterOpts{
			Name: "switchboard_agents_penalized_total",
			Help: "Total number of score penalties applied to unresponsive agents",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "switchboard_scheduler_tick_duration_seconds",
			Help:    "Time taken by a scheduler tick",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RequestCreated counts a new request.
func (m *Metrics) RequestCreated(outcome string) {
	if m == nil {
		return
	}
	m.RequestsCreated.WithLabelValues(outcome).Inc()
}

// Transition counts a lifecycle operation.
func (m *Metrics) Transition(op string) {
	if m == nil {
		return
	}
	m.RequestTransitions.WithLabelValues(op).Inc()
}

// Reclaimed counts a scheduler reclaim outcome.
func (m *Metrics) Reclaimed(outcome string) {
	if m == nil {
		return
	}
	m.SchedulerReclaims.WithLabelValues(outcome).Inc()
}

// Penalized counts a score penalty.
func (m *Metrics) Penalized() {
	if m == nil {
		return
	}
	m.AgentsPenalized.Inc()
}

// TickFailed counts a per-request tick failure.
func (m *Metrics) TickFailed() {
	if m == nil {
		return
	}
	m.SchedulerTickFailure.Inc()
}

// LockSkipped counts a tick skipped for lack of the lock.
func (m *Metrics) LockSkipped() {
	if m == nil {
		return
	}
	m.SchedulerLockSkipped.Inc()
}

// ObserveTick records how long a tick took.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(d.Seconds())
}
