// Package metrics exposes Prometheus collectors for every component that
// mutates shared resilience state: breakers, limiters, bulkheads, sessions,
// and the operations and runs they guard.
package metrics

import (
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the migration core publishes.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BreakerState      *prometheus.GaugeVec
	BreakerTrips      *prometheus.CounterVec
	RateLimiterWaits  *prometheus.HistogramVec
	BulkheadInFlight  *prometheus.GaugeVec
	BulkheadTimeouts  *prometheus.CounterVec
	RetryAttempts     *prometheus.CounterVec
	SessionRefreshes  *prometheus.CounterVec
	RunItemsTotal     *prometheus.CounterVec
	RunsActive        prometheus.Gauge
}

// New constructs and registers a Metrics bundle against the default
// registry, namespaced "migrationcore".
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry constructs and registers against an explicit registerer,
// useful for tests that want an isolated registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	const ns = "migrationcore"

	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "operations_total",
			Help: "Total operations dispatched by the executor, by provider, operation, and terminal status.",
		}, []string{"provider", "operation", "status"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "operation_duration_seconds",
			Help: "Operation handler duration in seconds.",
		}, []string{"provider", "operation"}),

		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half_open, 2=open) by provider.",
		}, []string{"provider"}),

		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "breaker_trips_total",
			Help: "Number of times a breaker transitioned to open, by provider.",
		}, []string{"provider"}),

		RateLimiterWaits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "rate_limiter_wait_seconds",
			Help: "Time spent waiting for a rate limiter token, by provider.",
		}, []string{"provider"}),

		BulkheadInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "bulkhead_in_flight",
			Help: "Current in-flight calls occupying a bulkhead slot, by provider.",
		}, []string{"provider"}),

		BulkheadTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "bulkhead_timeouts_total",
			Help: "Bulkhead wait timeouts, by provider.",
		}, []string{"provider"}),

		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "retry_attempts_total",
			Help: "Retry attempts, by provider and outcome error kind.",
		}, []string{"provider", "kind"}),

		SessionRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "session_refreshes_total",
			Help: "Session token exchanges/refreshes, by provider and result.",
		}, []string{"provider", "result"}),

		RunItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "run_items_total",
			Help: "Per-item migration outcomes, by run and terminal status.",
		}, []string{"run_id", "status"}),

		RunsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "runs_active",
			Help: "Number of migration runs currently in the running state.",
		}),
	}

	collectors := []prometheus.Collector{
		m.OperationsTotal, m.OperationDuration, m.BreakerState, m.BreakerTrips,
		m.RateLimiterWaits, m.BulkheadInFlight, m.BulkheadTimeouts, m.RetryAttempts,
		m.SessionRefreshes, m.RunItemsTotal, m.RunsActive,
	}
	for _, c := range collectors {
		reg.MustRegister(c)
	}
	return m
}

// Enabled reports whether metrics collection should run, gated by
// METRICS_ENABLED (defaults to enabled).
func Enabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	return v != "false" && v != "0"
}

var (
	globalOnce sync.Once
	global     *Metrics
)

// Init constructs the process-wide Metrics singleton exactly once.
func Init() *Metrics {
	globalOnce.Do(func() { global = New() })
	return global
}

// Global returns the process-wide Metrics singleton, constructing it via
// Init if needed.
func Global() *Metrics {
	if global == nil {
		return Init()
	}
	return global
}
