// Package metrics provides Prometheus metrics for batch resolution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for ArenaFlow.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	recordsResolved   prometheus.Counter
	recordsUnresolved *prometheus.CounterVec
	recordsSkipped    prometheus.Counter
	resolveLatency    prometheus.Histogram
	extractLatency    prometheus.Histogram
	linesSkipped      prometheus.Counter
	candidatesFound   prometheus.Histogram
	crossSourceRuns   prometheus.Counter
	sinkErrors        prometheus.Counter
	activeWorkers     prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithHistogramBuckets sets the latency histogram buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) { m.buckets = buckets }
}

// WithRegistry sets a custom registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// NewManager creates a metrics manager and registers all metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "arenaflow",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.recordsResolved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_resolved_total",
		Help:      "Metadata records resolved to a log interval.",
	})
	m.recordsUnresolved = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_unresolved_total",
		Help:      "Metadata records that failed resolution, by reason.",
	}, []string{"reason"})
	m.recordsSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_skipped_total",
		Help:      "Records skipped because a previous run already finished them.",
	})
	m.resolveLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "resolve_duration_seconds",
		Help:      "Time to resolve one record to an interval.",
		Buckets:   m.buckets,
	})
	m.extractLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "extract_duration_seconds",
		Help:      "Time to extract features from a resolved interval.",
		Buckets:   m.buckets,
	})
	m.linesSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "log_lines_skipped_total",
		Help:      "Unparseable log lines skipped across all scans.",
	})
	m.candidatesFound = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "candidates_per_record",
		Help:      "Candidate intervals found per record.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})
	m.crossSourceRuns = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cross_source_runs_total",
		Help:      "Resolutions that needed cross-source disambiguation.",
	})
	m.sinkErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "sink_errors_total",
		Help:      "Feature rows that failed to write.",
	})
	m.activeWorkers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "active_workers",
		Help:      "Batch workers currently resolving a record.",
	})

	return m
}

// RecordResolved increments the resolved counter and observes latency.
func (m *Manager) RecordResolved(d time.Duration) {
	m.recordsResolved.Inc()
	m.resolveLatency.Observe(d.Seconds())
}

// RecordUnresolved increments the unresolved counter for a reason.
func (m *Manager) RecordUnresolved(reason string) {
	m.recordsUnresolved.WithLabelValues(reason).Inc()
}

// RecordSkipped increments the skipped counter.
func (m *Manager) RecordSkipped() {
	m.recordsSkipped.Inc()
}

// RecordExtract observes one extraction pass.
func (m *Manager) RecordExtract(d time.Duration) {
	m.extractLatency.Observe(d.Seconds())
}

// AddLinesSkipped adds to the skipped-line counter.
func (m *Manager) AddLinesSkipped(n int) {
	m.linesSkipped.Add(float64(n))
}

// ObserveCandidates records the candidate count of one resolution.
func (m *Manager) ObserveCandidates(n int) {
	m.candidatesFound.Observe(float64(n))
}

// RecordCrossSource increments the disambiguation counter.
func (m *Manager) RecordCrossSource() {
	m.crossSourceRuns.Inc()
}

// RecordSinkError increments the sink error counter.
func (m *Manager) RecordSinkError() {
	m.sinkErrors.Inc()
}

// WorkerStarted / WorkerFinished track the active worker gauge.
func (m *Manager) WorkerStarted()  { m.activeWorkers.Inc() }
func (m *Manager) WorkerFinished() { m.activeWorkers.Dec() }

// Handler returns an HTTP handler exposing the registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics endpoint on addr until the server fails.
// Meant to run in its own goroutine.
func (m *Manager) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
