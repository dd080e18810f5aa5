// Package metrics provides Prometheus metrics for docflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	WorkflowCallsTotal   *prometheus.CounterVec
	WorkflowCallDuration *prometheus.HistogramVec
	LockWaitDuration     prometheus.Histogram
	RequestsAccepted     *prometheus.CounterVec
	EventLogFailures     prometheus.Counter
	EventLogPruned       prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {

	factory := promauto.With(reg)

	m := &Metrics{}

	m.WorkflowCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_workflow_calls_total",
			Help: "Total number of workflow method invocations",
		},
		[]string{"workflow", "method", "outcome"},
	)

	m.WorkflowCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docflow_workflow_call_duration_seconds",
			Help:    "Duration of workflow method invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow", "method"},
	)

	m.LockWaitDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docflow_lock_wait_seconds",
			Help:    "Time spent waiting for a document lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)

	m.RequestsAccepted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_requests_accepted_total",
			Help: "Total number of accepted publication, depublication and deletion requests",
		},
		[]string{"type"},
	)

	m.EventLogFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_eventlog_failures_total",
			Help: "Total number of event log writes which failed and were dropped",
		},
	)

	m.EventLogPruned = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_eventlog_pruned_total",
			Help: "Total number of event log entries removed by truncation",
		},
	)

	return m
}

func (m *Metrics) ObserveCall(workflow, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.WorkflowCallsTotal.WithLabelValues(workflow, method, outcome).Inc()
	m.WorkflowCallDuration.WithLabelValues(workflow, method).Observe(d.Seconds())
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWaitDuration.Observe(d.Seconds())
}

func (m *Metrics) RequestAccepted(requestType string) {
	if m == nil {
		return
	}
	m.RequestsAccepted.WithLabelValues(requestType).Inc()
}

func (m *Metrics) EventLogFailed() {
	if m == nil {
		return
	}
	m.EventLogFailures.Inc()
}

func (m *Metrics) EventLogTruncated(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.EventLogPruned.Add(float64(n))
}
