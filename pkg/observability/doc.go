// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry export.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
//	logger.WithField("message", "Order").Warn("unresolved field type")
//
// Context-aware logging:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).Info("compiled") // adds trace_id and span_id
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordCompilation("success", elapsed, 3)
//
//	mux := http.NewServeMux()
//	observability.RegisterMetricsEndpoint(mux, registry)
//
// All Record methods are safe to call on a nil *Metrics.
//
// # OpenTelemetry
//
//	tel, err := observability.StartTelemetry(ctx, cfg, logger) // nil when disabled
//	defer tel.Shutdown(ctx)
//
//	otelMetrics, _ := observability.NewOTelMetrics(tel.MeterProvider)
//	metrics.WithOTel(otelMetrics) // mirror Prometheus measurements over OTLP
//
// # Shutdown
//
// ShutdownManager stops an HTTP server and runs registered cleanup
// functions with a bounded timeout.
package observability
