package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Refresh outcome labels.
const (
	RefreshApplied    = "applied"
	RefreshSuppressed = "suppressed"
	RefreshSuperseded = "superseded"
	RefreshFailed     = "failed"
)

// Metrics holds the Prometheus metrics for the loan manager.
type Metrics struct {
	// Registry owns these metrics; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	refreshCycles   *prometheus.CounterVec
	schedulesRegen  prometheus.Counter
}

// NewMetrics registers all metrics in a private registry, so repeated
// construction in tests cannot trigger duplicate-collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanmgr_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanmgr_store_errors_total",
				Help: "Total remote store failures by action.",
			},
			[]string{"action"},
		),
		refreshCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanmgr_refresh_cycles_total",
				Help: "Snapshot refresh cycles by outcome.",
			},
			[]string{"outcome"},
		),
		schedulesRegen: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loanmgr_schedules_regenerated_total",
				Help: "Schedules rebuilt because the stored copy was unreadable.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store failure counter for an action.
func (m *Metrics) IncrStoreError(action string) {
	m.storeErrors.WithLabelValues(action).Inc()
}

// IncrRefresh counts one refresh cycle with its outcome label.
func (m *Metrics) IncrRefresh(outcome string) {
	m.refreshCycles.WithLabelValues(outcome).Inc()
}

// IncrScheduleRegenerated counts one fallback schedule rebuild.
func (m *Metrics) IncrScheduleRegenerated() {
	m.schedulesRegen.Inc()
}

// SyncSnapshot is the payload of GET /v1/metrics/sync.
type SyncSnapshot struct {
	RefreshApplied       float64 `json:"refresh_applied"`
	RefreshSuppressed    float64 `json:"refresh_suppressed"`
	RefreshSuperseded    float64 `json:"refresh_superseded"`
	RefreshFailed        float64 `json:"refresh_failed"`
	FailureRate          float64 `json:"failure_rate"`
	SchedulesRegenerated float64 `json:"schedules_regenerated"`
}

// GetSyncSnapshot reads the current counter values. Prometheus counters are
// cumulative, so these numbers cover the process lifetime.
func (m *Metrics) GetSyncSnapshot() *SyncSnapshot {
	snap := &SyncSnapshot{
		RefreshApplied:    counterValue(m.refreshCycles, RefreshApplied),
		RefreshSuppressed: counterValue(m.refreshCycles, RefreshSuppressed),
		RefreshSuperseded: counterValue(m.refreshCycles, RefreshSuperseded),
		RefreshFailed:     counterValue(m.refreshCycles, RefreshFailed),
	}

	var regen dto.Metric
	if err := m.schedulesRegen.Write(&regen); err == nil && regen.Counter != nil && regen.Counter.Value != nil {
		snap.SchedulesRegenerated = *regen.Counter.Value
	}

	total := snap.RefreshApplied + snap.RefreshSuperseded + snap.RefreshFailed
	if total > 0 {
		snap.FailureRate = snap.RefreshFailed / total
	}
	return snap
}

// counterValue extracts the current value of one CounterVec label.
func counterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
