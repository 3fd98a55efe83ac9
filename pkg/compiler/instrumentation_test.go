package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/platinummonkey/protorules/pkg/observability"
)

const instrumentedSource = `
syntax = "proto3";
message Node {
  Node next = 1;
  Unknown extra = 2;
}
message Leaf { string id = 1; }
`

func TestCompile_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	c := New(WithMetrics(metrics))

	set, err := c.Compile(context.Background(), instrumentedSource)
	require.NoError(t, err)

	_, err = c.Compile(context.Background(), "message {")
	require.Error(t, err)

	_, _ = set.Validate("Leaf", map[string]any{"id": "a"})
	_, _ = set.Validate("Leaf", map[string]any{"id": 1})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CompilationsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CompilationsTotal.WithLabelValues("parse_error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.MessagesCompiled))
	// Node.extra is seen at the top level and once more inside Node.next
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.UnresolvedFieldsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CycleBreaksTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ValidationsTotal.WithLabelValues("Leaf", "valid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ValidationsTotal.WithLabelValues("Leaf", "invalid")))
}

func TestCompile_LogsUnresolvedTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.WarnLevel, &buf)

	_, err := Compile(instrumentedSource, WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "unresolved field type")
	assert.Contains(t, out, `"type":"Unknown"`)
	assert.Contains(t, out, `"message":"Node"`)
	assert.Equal(t, 2, strings.Count(out, "unresolved field type"))
}

func TestCompile_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(provider)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, err := New().Compile(context.Background(), instrumentedSource)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	names := make([]string, 0, len(spans))
	for _, span := range spans {
		names = append(names, span.Name)
	}
	assert.ElementsMatch(t, []string{"compiler.Compile", "compiler.CompileDocument"}, names)

	exporter.Reset()
	_, err = New(WithStrictTypes(true)).Compile(context.Background(), instrumentedSource)
	var unresolved *UnresolvedTypeError
	require.True(t, errors.As(err, &unresolved))

	for _, span := range exporter.GetSpans() {
		assert.NotEmpty(t, span.Events, "span %s should record the error", span.Name)
	}
}

func TestValidatorSet(t *testing.T) {
	set := compileSet(t, `
syntax = "proto3";
message Zed { string a = 1; }
message Alpha { int32 n = 1; }
`)

	assert.Equal(t, []string{"Alpha", "Zed"}, set.Names())
	assert.Equal(t, 2, set.Len())

	names := set.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"Alpha", "Zed"}, set.Names())

	_, ok := set.Get("Missing")
	assert.False(t, ok)

	_, err := set.Validate("Missing", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownMessage)

	descriptions := set.Describe()
	require.Len(t, descriptions, 2)
	assert.Equal(t, "object", descriptions["Alpha"].Type)
	assert.True(t, descriptions["Alpha"].Keys["n"].Integer)
}
