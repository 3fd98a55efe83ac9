package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	// Compilation metrics
	compilationsTotal   metric.Int64Counter
	compilationDuration metric.Float64Histogram
	messagesCompiled    metric.Int64Counter

	// Cache metrics
	cacheLookupsTotal metric.Int64Counter

	// Validation metrics
	validationsTotal metric.Int64Counter
}

// NewOTelMetrics creates the OTel instruments on provider. A nil provider
// uses the global meter provider.
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("github.com/platinummonkey/protorules")

	m := &OTelMetrics{}
	var err error

	m.compilationsTotal, err = meter.Int64Counter(
		"protorules.compilations",
		metric.WithDescription("Total number of schema compilations"),
		metric.WithUnit("{compilation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compilations counter: %w", err)
	}

	m.compilationDuration, err = meter.Float64Histogram(
		"protorules.compilation.duration",
		metric.WithDescription("Schema compilation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compilation duration histogram: %w", err)
	}

	m.messagesCompiled, err = meter.Int64Counter(
		"protorules.messages.compiled",
		metric.WithDescription("Total number of top-level messages compiled into validators"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages counter: %w", err)
	}

	m.cacheLookupsTotal, err = meter.Int64Counter(
		"protorules.cache.lookups",
		metric.WithDescription("Total number of compiled schema cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookups counter: %w", err)
	}

	m.validationsTotal, err = meter.Int64Counter(
		"protorules.validations",
		metric.WithDescription("Total number of values validated"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validations counter: %w", err)
	}

	return m, nil
}

// RecordCompilation records the outcome of one compilation
func (m *OTelMetrics) RecordCompilation(ctx context.Context, status string, duration time.Duration, messages int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.compilationsTotal.Add(ctx, 1, attrs)
	m.compilationDuration.Record(ctx, duration.Seconds(), attrs)
	m.messagesCompiled.Add(ctx, int64(messages))
}

// RecordCacheLookup records a cache hit or miss
func (m *OTelMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// RecordValidation records the result of validating a value against a message
func (m *OTelMetrics) RecordValidation(ctx context.Context, message string, ok bool) {
	if m == nil {
		return
	}
	m.validationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message", message),
		attribute.Bool("valid", ok),
	))
}
