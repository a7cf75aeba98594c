package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the glue adapter. A nil *Metrics
// or a disabled configuration is a no-op, so callers never guard their
// record calls.
type Metrics struct {
	registry *prometheus.Registry

	definitionsRegistered *prometheus.CounterVec
	invocations           *prometheus.CounterVec
	invocationDuration    prometheus.Histogram
	glueLoadDuration      prometheus.Histogram
	gluePathsLoaded       prometheus.Counter
}

// NewMetrics creates a collector. With cfg.Enabled false the returned
// instance records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		definitionsRegistered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "glue_definitions_registered_total",
				Help:      "Step, hook and world-factory registrations by kind",
			},
			[]string{"kind"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "glue_invocations_total",
				Help:      "Body invocations by result (ok, error, timeout)",
			},
			[]string{"result"},
		),
		invocationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "glue_invocation_duration_seconds",
				Help:      "Wall-clock duration of body invocations",
				Buckets:   prometheus.DefBuckets,
			},
		),
		glueLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "glue_load_duration_seconds",
				Help:      "Duration of full glue loads",
				Buckets:   prometheus.DefBuckets,
			},
		),
		gluePathsLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "glue_paths_loaded_total",
				Help:      "Glue paths scanned across loads",
			},
		),
	}

	registry.MustRegister(
		m.definitionsRegistered,
		m.invocations,
		m.invocationDuration,
		m.glueLoadDuration,
		m.gluePathsLoaded,
	)
	return m
}

// RecordDefinition counts one registration of the given kind.
func (m *Metrics) RecordDefinition(kind string) {
	if m == nil || m.registry == nil {
		return
	}
	m.definitionsRegistered.WithLabelValues(kind).Inc()
}

// RecordInvocation counts one body invocation and its duration.
func (m *Metrics) RecordInvocation(result string, seconds float64) {
	if m == nil || m.registry == nil {
		return
	}
	m.invocations.WithLabelValues(result).Inc()
	m.invocationDuration.Observe(seconds)
}

// RecordGlueLoad records one completed glue load over the given number of
// paths.
func (m *Metrics) RecordGlueLoad(paths int, seconds float64) {
	if m == nil || m.registry == nil {
		return
	}
	m.glueLoadDuration.Observe(seconds)
	m.gluePathsLoaded.Add(float64(paths))
}

// Handler exposes the metrics in Prometheus text format, for hosts that
// embed the adapter in a long-lived process. Nil when disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
