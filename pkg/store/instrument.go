package store

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/platinummonkey/protorules/pkg/store"

// traced records a span around every store operation
type traced struct {
	next    SourceStore
	backend string
	tracer  trace.Tracer
}

// Instrument wraps s so each operation is traced with the global tracer provider
func Instrument(s SourceStore, backend string) SourceStore {
	return &traced{next: s, backend: backend, tracer: otel.Tracer(tracerName)}
}

func (t *traced) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("store.backend", t.backend),
		attribute.String("store.operation", op),
	}
	if key != "" {
		attrs = append(attrs, attribute.String("store.key", key))
	}
	return t.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *traced) Put(ctx context.Context, key, source string) (err error) {
	ctx, span := t.start(ctx, "Put", key)
	defer func() { finish(span, err) }()
	span.SetAttributes(attribute.Int("store.source_bytes", len(source)))
	return t.next.Put(ctx, key, source)
}

func (t *traced) Get(ctx context.Context, key string) (source string, err error) {
	ctx, span := t.start(ctx, "Get", key)
	defer func() { finish(span, err) }()
	source, err = t.next.Get(ctx, key)
	span.SetAttributes(attribute.Bool("store.found", err == nil))
	return source, err
}

func (t *traced) Delete(ctx context.Context, key string) (err error) {
	ctx, span := t.start(ctx, "Delete", key)
	defer func() { finish(span, err) }()
	return t.next.Delete(ctx, key)
}

func (t *traced) Ping(ctx context.Context) (err error) {
	ctx, span := t.start(ctx, "Ping", "")
	defer func() { finish(span, err) }()
	return t.next.Ping(ctx)
}

func (t *traced) Close() error {
	return t.next.Close()
}
