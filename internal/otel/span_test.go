package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp.Tracer("catalog-sync-test")
}

func TestStartSpan_WithoutTracer(t *testing.T) {
	t.Parallel()

	ctx, span := StartSpan(context.Background(), nil, "sync.PerformSync")
	require.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	assert.NotPanics(t, func() { span.End() })
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	t.Parallel()

	exporter, tracer := recordingTracer(t)

	ctx, run := StartSpan(context.Background(), tracer, "sync.PerformSync",
		trace.WithAttributes(AttrCollection.String("resources"), AttrGroupMode.Bool(true)))
	_, cleanup := StartSpan(ctx, tracer, "sync.Cleanup")
	cleanup.SetAttributes(AttrRemovedCount.Int(2))
	cleanup.End()
	run.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "sync.Cleanup", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())

	attrs := make(map[string]any)
	for _, attr := range spans[1].Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, "resources", attrs["catalog.collection"])
	assert.Equal(t, true, attrs["sync.group_by_package"])
	assert.Equal(t, int64(2), spans[0].Attributes[0].Value.AsInt64())
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { RecordError(nil, errors.New("boom")) })

	exporter, tracer := recordingTracer(t)

	_, ok := tracer.Start(context.Background(), "sync.Export")
	RecordError(ok, nil)
	ok.End()

	_, failed := tracer.Start(context.Background(), "sync.Export")
	RecordError(failed, errors.New("dial tcp 10.0.0.1:27017: connection refused"))
	failed.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Empty(t, spans[0].Events)

	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "operation failed", spans[1].Status.Description)
	require.NotEmpty(t, spans[1].Events)
	assert.Equal(t, "exception", spans[1].Events[0].Name)
}
