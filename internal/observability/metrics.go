package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters and latencies for validate, format, convert and
// repair runs.
//
// A CLI process is short-lived, so metrics live in a private registry and
// are flushed to a node_exporter textfile with WriteTextfile rather than
// scraped.
//
// Usage:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordOperation("repair", "fixed", time.Since(start).Seconds())
//	defer metrics.WriteTextfile("/var/lib/node_exporter/yamldoctor.prom")
type Metrics struct {
	registry *prometheus.Registry

	// OperationCounter counts operations by outcome.
	// Labels: operation (validate|format|convert|repair), status (ok|invalid|fixed|partial|error)
	OperationCounter *prometheus.CounterVec

	// OperationDuration measures operation latency in seconds.
	// Labels: operation
	// Buckets: 1ms, 5ms, 10ms, 50ms, 100ms, 500ms, 1s, 5s
	OperationDuration *prometheus.HistogramVec

	// RepairSteps counts repair pipeline attempts.
	// Labels: step, result (parsed|failed)
	RepairSteps *prometheus.CounterVec

	// IssueCounter counts reported issues.
	// Labels: category, severity
	IssueCounter *prometheus.CounterVec

	// FixCounter counts auto-fix changes.
	// Labels: reason (min|max|default|sanitized|conflict|converted)
	FixCounter *prometheus.CounterVec

	// WatchEvents counts debounced file change events handled by watch.
	WatchEvents prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg. A nil reg gets
// a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		OperationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yamldoctor_operations_total",
				Help: "Total number of operations by type and outcome",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yamldoctor_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),

		RepairSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yamldoctor_repair_steps_total",
				Help: "Total number of repair pipeline attempts by step and result",
			},
			[]string{"step", "result"},
		),

		IssueCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yamldoctor_issues_total",
				Help: "Total number of reported issues by category and severity",
			},
			[]string{"category", "severity"},
		),

		FixCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yamldoctor_fixes_total",
				Help: "Total number of auto-fix changes by reason",
			},
			[]string{"reason"},
		),

		WatchEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "yamldoctor_watch_events_total",
				Help: "Total number of file change events handled by watch",
			},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation records one finished operation.
func (m *Metrics) RecordOperation(operation, status string, durationSeconds float64) {
	m.OperationCounter.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordRepairStep records one pipeline attempt.
func (m *Metrics) RecordRepairStep(step string, parsed bool) {
	result := "failed"
	if parsed {
		result = "parsed"
	}
	m.RepairSteps.WithLabelValues(step, result).Inc()
}

// RecordIssue increments the issue counter.
func (m *Metrics) RecordIssue(category, severity string) {
	m.IssueCounter.WithLabelValues(category, severity).Inc()
}

// RecordFix increments the fix counter.
func (m *Metrics) RecordFix(reason string) {
	m.FixCounter.WithLabelValues(reason).Inc()
}

// WriteTextfile writes every metric in the registry to path in the text
// exposition format, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
