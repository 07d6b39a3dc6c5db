// Package telemetry exports scheduler and task metrics in Prometheus
// format, adapted from the teacher's AI-subsystem exporter to the task
// core's domain (spec.md's core is silent on metrics -- this is ambient
// observability carried over from the teacher regardless, per the
// expanded spec's AMBIENT STACK).
package telemetry

import (
	"net/http"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports task-core metrics: per-scheduler submission/outcome
// counters, an active-task gauge per scheduler, and a tick-duration
// histogram.
type Exporter struct {
	registry *prometheus.Registry

	tasksSubmitted *prometheus.CounterVec
	tasksCompleted *prometheus.CounterVec
	tasksFailed    *prometheus.CounterVec
	tasksCancelled *prometheus.CounterVec
	activeTasks    *prometheus.GaugeVec
	tickDuration   *prometheus.HistogramVec

	mu sync.RWMutex
}

// Config configures the Exporter.
type Config struct {
	// Registry to use (if nil, creates a new one).
	Registry *prometheus.Registry

	// Buckets for the tick-duration histogram, in seconds.
	TickDurationBuckets []float64
}

// DefaultConfig returns the default Exporter configuration: bucket
// boundaries suited to sub-frame-budget tick durations.
func DefaultConfig() Config {
	return Config{
		TickDurationBuckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}
}

// NewExporter builds an Exporter and registers its metric families.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.TickDurationBuckets) == 0 {
		cfg.TickDurationBuckets = DefaultConfig().TickDurationBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.tasksSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "runner",
			Name:      "tasks_submitted_total",
			Help:      "Total number of tasks submitted to a scheduler",
		},
		[]string{"scheduler"},
	)

	e.tasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "runner",
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks that reached Completed",
		},
		[]string{"scheduler"},
	)

	e.tasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "runner",
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks that reached Failed (retries exhausted)",
		},
		[]string{"scheduler"},
	)

	e.tasksCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "runner",
			Name:      "tasks_cancelled_total",
			Help:      "Total number of tasks that reached Cancelled",
		},
		[]string{"scheduler"},
	)

	e.activeTasks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cadence",
			Subsystem: "runner",
			Name:      "active_tasks",
			Help:      "Number of tasks currently scheduled, per scheduler",
		},
		[]string{"scheduler"},
	)

	e.tickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cadence",
			Subsystem: "runner",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside a single Runner.Tick call",
			Buckets:   cfg.TickDurationBuckets,
		},
		[]string{},
	)

	registry.MustRegister(
		e.tasksSubmitted,
		e.tasksCompleted,
		e.tasksFailed,
		e.tasksCancelled,
		e.activeTasks,
		e.tickDuration,
	)

	return e
}

// RecordSubmitted increments the submitted counter for scheduler.
func (e *Exporter) RecordSubmitted(scheduler string) {
	e.tasksSubmitted.WithLabelValues(scheduler).Inc()
}

// RecordCompleted increments the completed counter for scheduler.
func (e *Exporter) RecordCompleted(scheduler string) {
	e.tasksCompleted.WithLabelValues(scheduler).Inc()
}

// RecordFailed increments the failed counter for scheduler.
func (e *Exporter) RecordFailed(scheduler string) {
	e.tasksFailed.WithLabelValues(scheduler).Inc()
}

// RecordCancelled increments the cancelled counter for scheduler.
func (e *Exporter) RecordCancelled(scheduler string) {
	e.tasksCancelled.WithLabelValues(scheduler).Inc()
}

// SetActiveTasks sets the active-task gauge for scheduler.
func (e *Exporter) SetActiveTasks(scheduler string, count int) {
	e.activeTasks.WithLabelValues(scheduler).Set(float64(count))
}

// ObserveTickDuration records how long a Runner.Tick call took.
func (e *Exporter) ObserveTickDuration(d time.Duration) {
	e.tickDuration.WithLabelValues().Observe(d.Seconds())
}

// Handler returns the HTTP handler serving this Exporter's registry in
// Prometheus text exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler directly so an Exporter can be mounted
// on a mux without an extra indirection.
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Gather returns the current metric families, for tests and debugging
// rather than the text exposition format's line-oriented shape.
func (e *Exporter) Gather() ([]*dto.MetricFamily, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Gather()
}
