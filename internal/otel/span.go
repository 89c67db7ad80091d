// Package otel provides OpenTelemetry span helpers for the sync engine.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by every span of a sync run
const (
	AttrCollection   = attribute.Key("catalog.collection")
	AttrCatalogURL   = attribute.Key("catalog.server")
	AttrPackageName  = attribute.Key("catalog.package")
	AttrCKANID       = attribute.Key("catalog.ckan_id")
	AttrGroupMode    = attribute.Key("sync.group_by_package")
	AttrOutcome      = attribute.Key("sync.outcome")
	AttrResultCount  = attribute.Key("result.count")
	AttrRemovedCount = attribute.Key("sync.removed")
)

// StartSpan starts a span on tracer. A nil tracer yields the span already in ctx,
// which is a no-op span when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err as a span event and marks the span failed. The status
// description stays generic; store errors may carry connection strings.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
