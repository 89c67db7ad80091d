package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/opendata-sync/catalog-sync/sync"
)

// Item outcomes recorded by RecordItem
const (
	OutcomeSynced   = "synced"
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
	OutcomeRemoved  = "removed"
)

// SyncMetrics holds the OpenTelemetry instruments for sync runs
type SyncMetrics struct {
	syncDuration metric.Float64Histogram
	items        metric.Int64Counter
	packages     metric.Int64Gauge
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"catalog_sync_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return nil, err
	}

	items, err := meter.Int64Counter(
		"catalog_sync_items_total",
		metric.WithDescription("Number of items processed, by outcome"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	packages, err := meter.Int64Gauge(
		"catalog_sync_packages",
		metric.WithDescription("Number of catalog packages taking part in the last run"),
		metric.WithUnit("{package}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration: syncDuration,
		items:        items,
		packages:     packages,
	}, nil
}

// RecordSyncDuration records the duration of a run
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, collection string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
		attribute.Bool("success", success),
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordItems adds count items with the given outcome
func (m *SyncMetrics) RecordItems(ctx context.Context, collection, outcome string, count int) {
	if m == nil || m.items == nil || count == 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
		attribute.String("outcome", outcome),
	}

	m.items.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordPackages records the number of packages of a run
func (m *SyncMetrics) RecordPackages(ctx context.Context, collection string, count int) {
	if m == nil || m.packages == nil {
		return
	}

	m.packages.Record(ctx, int64(count), metric.WithAttributes(attribute.String("collection", collection)))
}
