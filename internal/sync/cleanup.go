package sync

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/opendata-sync/catalog-sync/internal/otel"
)

// cleanup removes every stored item whose ckan_id was not part of the fetched catalog
func (r *run) cleanup(ctx context.Context) error {
	ctx, span := otel.StartSpan(ctx, r.deps.Tracer, "sync.Cleanup")
	defer span.End()

	stored, err := r.store.ListCKANIDs(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to list stored items: %w", err)
	}

	orphans := orphanIDs(stored, r.fetched)
	if len(orphans) == 0 {
		return nil
	}

	removed, err := r.store.RemoveByCKANIDs(ctx, orphans)
	r.stats.Removed += removed
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to remove %d orphaned items: %w", len(orphans), err)
	}

	span.SetAttributes(otel.AttrRemovedCount.Int(removed))
	logr.FromContextOrDiscard(ctx).V(1).Info("Removed orphaned items", "count", removed)
	return nil
}

// orphanIDs returns the ids of stored that are not in fetched, in stored order, without duplicates
func orphanIDs(stored []string, fetched map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(stored))
	var orphans []string
	for _, id := range stored {
		if _, ok := fetched[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		orphans = append(orphans, id)
	}
	return orphans
}
