package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Compilation metrics
	CompilationsTotal     *prometheus.CounterVec
	CompilationDuration   *prometheus.HistogramVec
	MessagesCompiled      prometheus.Counter
	UnresolvedFieldsTotal prometheus.Counter
	CycleBreaksTotal      prometheus.Counter

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheEntries     prometheus.Gauge

	// Validation metrics
	ValidationsTotal *prometheus.CounterVec

	otel *OTelMetrics
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		CompilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protorules_compilations_total",
				Help: "Total number of schema compilations",
			},
			[]string{"status"},
		),
		CompilationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "protorules_compilation_duration_seconds",
				Help:    "Schema compilation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"status"},
		),
		MessagesCompiled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "protorules_messages_compiled_total",
				Help: "Total number of top-level messages compiled into validators",
			},
		),
		UnresolvedFieldsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "protorules_unresolved_fields_total",
				Help: "Total number of fields whose type could not be resolved",
			},
		),
		CycleBreaksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "protorules_cycle_breaks_total",
				Help: "Total number of recursive message references compiled as untyped",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "protorules_cache_hits_total",
				Help: "Total number of compiled schema cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "protorules_cache_misses_total",
				Help: "Total number of compiled schema cache misses",
			},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "protorules_cache_entries",
				Help: "Number of compiled schemas currently cached",
			},
		),
		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protorules_validations_total",
				Help: "Total number of values validated",
			},
			[]string{"message", "result"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.CompilationsTotal,
			m.CompilationDuration,
			m.MessagesCompiled,
			m.UnresolvedFieldsTotal,
			m.CycleBreaksTotal,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.CacheEntries,
			m.ValidationsTotal,
		)
	}

	return m
}

// WithOTel mirrors every recorded measurement to the given OTel instruments
func (m *Metrics) WithOTel(o *OTelMetrics) *Metrics {
	if m != nil {
		m.otel = o
	}
	return m
}

// RecordCompilation records the outcome of one compilation
func (m *Metrics) RecordCompilation(status string, duration time.Duration, messages int) {
	if m == nil {
		return
	}
	m.CompilationsTotal.WithLabelValues(status).Inc()
	m.CompilationDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.MessagesCompiled.Add(float64(messages))
	m.otel.RecordCompilation(context.Background(), status, duration, messages)
}

// RecordUnresolvedField counts a field skipped because its type is unknown
func (m *Metrics) RecordUnresolvedField() {
	if m == nil {
		return
	}
	m.UnresolvedFieldsTotal.Inc()
}

// RecordCycleBreak counts a recursive reference compiled as untyped
func (m *Metrics) RecordCycleBreak() {
	if m == nil {
		return
	}
	m.CycleBreaksTotal.Inc()
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	m.otel.RecordCacheLookup(context.Background(), hit)
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// SetCacheEntries updates the cache size gauge
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// RecordValidation records the result of validating a value against a message
func (m *Metrics) RecordValidation(message string, ok bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !ok {
		result = "invalid"
	}
	m.ValidationsTotal.WithLabelValues(message, result).Inc()
	m.otel.RecordValidation(context.Background(), message, ok)
}

// MetricsHandler serves the metrics in registry in the Prometheus text format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", MetricsHandler(registry))
}
