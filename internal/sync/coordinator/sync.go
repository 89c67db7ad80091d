package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/opendata-sync/catalog-sync/internal/status"
	pkgsync "github.com/opendata-sync/catalog-sync/internal/sync"
	"github.com/opendata-sync/catalog-sync/internal/telemetry"
	"github.com/opendata-sync/catalog-sync/internal/versions"
)

// performSync executes one pass, then persists, measures and announces its result
func (c *defaultCoordinator) performSync(ctx context.Context) (*status.RunStats, *pkgsync.Error) {
	startTime := time.Now()

	if c.persistence != nil {
		c.checkLastRun(ctx)

		syncing := &status.RunStats{
			Phase:     status.SyncPhaseSyncing,
			Version:   c.version,
			StartedAt: startTime.UTC(),
			ErrLog:    []string{},
		}
		if err := c.persistence.SaveStatus(ctx, syncing); err != nil {
			slog.Warn("Failed to persist syncing status", "error", err)
		}
	}

	runCtx := ctx
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	slog.Info("Starting sync operation", "collection", c.collection)
	stats, syncErr := c.manager.PerformSync(runCtx)
	syncDuration := time.Since(startTime)

	if stats == nil {
		stats = status.NewRunStats(startTime)
		stats.Fail(time.Now(), "sync returned no statistics")
	}

	if syncErr != nil {
		slog.Error("Sync failed",
			"collection", c.collection,
			"kind", syncErr.Kind,
			"error", syncErr.Message)
	} else {
		slog.Info("Sync completed",
			"collection", c.collection,
			"packages", stats.Packages,
			"syncd", stats.Syncd,
			"inserted", stats.Inserted,
			"updated", stats.Updated,
			"removed", stats.Removed,
			"errors", stats.Errors,
			"duration", syncDuration)
	}
	for _, msg := range stats.ErrLog {
		slog.Warn("Sync error", "collection", c.collection, "message", msg)
	}

	if c.persistence != nil {
		if err := c.persistence.SaveStatus(ctx, stats); err != nil {
			slog.Error("Failed to persist final sync status", "error", err)
		}
	}

	c.recordMetrics(ctx, stats, syncDuration, syncErr == nil)

	if syncErr == nil {
		if err := c.notifier.Notify(ctx, stats); err != nil {
			slog.Error("Failed to publish sync notification", "error", err)
		}
	}

	return stats, syncErr
}

// checkLastRun warns when the previous run did not finish or was made by a newer release
func (c *defaultCoordinator) checkLastRun(ctx context.Context) {
	last, err := c.persistence.LoadStatus(ctx)
	if err != nil {
		slog.Warn("Failed to load last sync status", "error", err)
		return
	}
	if last == nil {
		return
	}

	if last.Phase == status.SyncPhaseSyncing {
		slog.Warn("Previous sync did not finish", "started_at", last.StartedAt, "version", last.Version)
	}
	if versions.IsRelease(last.Version) && versions.IsNewerVersion(last.Version, c.version) {
		slog.Warn("Collection was last synced by a newer catalog-sync release",
			"last_version", last.Version,
			"version", c.version)
	}
}

func (c *defaultCoordinator) recordMetrics(ctx context.Context, stats *status.RunStats, d time.Duration, success bool) {
	if c.syncMetrics == nil {
		return
	}
	c.syncMetrics.RecordSyncDuration(ctx, c.collection, d, success)
	c.syncMetrics.RecordPackages(ctx, c.collection, stats.Packages)
	c.syncMetrics.RecordItems(ctx, c.collection, telemetry.OutcomeSynced, stats.Syncd)
	c.syncMetrics.RecordItems(ctx, c.collection, telemetry.OutcomeInserted, stats.Inserted)
	c.syncMetrics.RecordItems(ctx, c.collection, telemetry.OutcomeUpdated, stats.Updated)
	c.syncMetrics.RecordItems(ctx, c.collection, telemetry.OutcomeFailed, stats.Errors)
	c.syncMetrics.RecordItems(ctx, c.collection, telemetry.OutcomeRemoved, stats.Removed)
}
