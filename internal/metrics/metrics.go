package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Tool error kinds
const (
	ErrorNotFound   = "not_found"
	ErrorValidation = "validation"
	ErrorExecution  = "execution"
	ErrorPanic      = "panic"
)

// Metrics holds all Prometheus metrics for the tool registry
type Metrics struct {
	registry *prometheus.Registry

	// Tool metrics
	ToolExecutionsTotal      *prometheus.CounterVec
	ToolExecutionDuration    *prometheus.HistogramVec
	ToolExecutionErrorsTotal *prometheus.CounterVec

	// Cache metrics
	CacheLookupsTotal *prometheus.CounterVec
	CacheWritesTotal  *prometheus.CounterVec

	// Audit metrics
	AuditWriteErrorsTotal prometheus.Counter

	// Batch metrics
	BatchExecutionsTotal *prometheus.CounterVec
	BatchDuration        *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		ToolExecutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_execution_errors_total",
				Help: "Total number of tool execution errors",
			},
			[]string{"tool_name", "error_type"},
		),

		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_cache_lookups_total",
				Help: "Total number of result cache lookups by outcome",
			},
			[]string{"tool_name", "result"},
		),
		CacheWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_cache_writes_total",
				Help: "Total number of result cache writes by status",
			},
			[]string{"tool_name", "status"},
		),

		AuditWriteErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_write_errors_total",
				Help: "Total number of audit records that could not be written",
			},
		),

		BatchExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_batch_executions_total",
				Help: "Total number of tool batches by mode and status",
			},
			[]string{"mode", "status"},
		),
		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_batch_duration_seconds",
				Help:    "Duration of tool batches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}

	m.registry.MustRegister(
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.ToolExecutionErrorsTotal,
		m.CacheLookupsTotal,
		m.CacheWritesTotal,
		m.AuditWriteErrorsTotal,
		m.BatchExecutionsTotal,
		m.BatchDuration,
	)

	return m
}

// RecordToolExecution records a real execution of a tool
func (m *Metrics) RecordToolExecution(tool string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status(success)).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordToolError records a failed call by error kind
func (m *Metrics) RecordToolError(tool, errorType string) {
	if m == nil {
		return
	}
	m.ToolExecutionErrorsTotal.WithLabelValues(tool, errorType).Inc()
}

// RecordCacheLookup records the outcome of a cache lookup
func (m *Metrics) RecordCacheLookup(tool, result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(tool, result).Inc()
}

// RecordCacheWrite records a cache write attempt
func (m *Metrics) RecordCacheWrite(tool string, success bool) {
	if m == nil {
		return
	}
	m.CacheWritesTotal.WithLabelValues(tool, status(success)).Inc()
}

// RecordAuditError records a swallowed audit write failure
func (m *Metrics) RecordAuditError() {
	if m == nil {
		return
	}
	m.AuditWriteErrorsTotal.Inc()
}

// RecordBatch records a completed batch
func (m *Metrics) RecordBatch(mode string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.BatchExecutionsTotal.WithLabelValues(mode, status(success)).Inc()
	m.BatchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
