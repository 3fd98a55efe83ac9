package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestStartTelemetry_Disabled(t *testing.T) {
	tel, err := StartTelemetry(context.Background(), TelemetryConfig{Enabled: false}, NewNopLogger())
	if err != nil {
		t.Fatalf("StartTelemetry() error = %v", err)
	}
	if tel != nil {
		t.Errorf("StartTelemetry() = %v, want nil when disabled", tel)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on nil telemetry error = %v", err)
	}
}

func TestStartTelemetry_MissingEndpoint(t *testing.T) {
	if _, err := StartTelemetry(context.Background(), TelemetryConfig{Enabled: true}, nil); err == nil {
		t.Fatal("StartTelemetry() expected error for empty endpoint")
	}
}

func TestStartTelemetry_Enabled(t *testing.T) {
	prevTracer := otel.GetTracerProvider()
	prevMeter := otel.GetMeterProvider()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
		otel.SetTextMapPropagator(prevPropagator)
	})

	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	cfg := TelemetryConfig{
		Enabled:        true,
		Endpoint:       "127.0.0.1:4317",
		ServiceName:    "protorules-test",
		ServiceVersion: "dev",
		Insecure:       true,
	}
	tel, err := StartTelemetry(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("StartTelemetry() error = %v", err)
	}
	if tel == nil || tel.TracerProvider == nil || tel.MeterProvider == nil {
		t.Fatalf("StartTelemetry() returned incomplete telemetry: %+v", tel)
	}

	if otel.GetTracerProvider() != tel.TracerProvider {
		t.Error("global tracer provider was not installed")
	}
	fields := otel.GetTextMapPropagator().Fields()
	if !strings.Contains(strings.Join(fields, ","), "traceparent") {
		t.Errorf("propagator fields = %v, want traceparent", fields)
	}
	if !strings.Contains(buf.String(), "OpenTelemetry initialized") {
		t.Errorf("expected init log line, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"otel_endpoint":"127.0.0.1:4317"`) {
		t.Errorf("expected endpoint field, got %q", buf.String())
	}

	// Nothing listens on the endpoint, so the final metric export may fail.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tel.Shutdown(ctx)
}

func TestTelemetry_ShutdownLocalProviders(t *testing.T) {
	tel := &Telemetry{
		TracerProvider: sdktrace.NewTracerProvider(),
		MeterProvider:  sdkmetric.NewMeterProvider(),
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
