package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opendata-sync/catalog-sync/internal/config"
	"github.com/opendata-sync/catalog-sync/internal/status"
	"github.com/opendata-sync/catalog-sync/internal/telemetry"
	"github.com/opendata-sync/catalog-sync/internal/versions"
)

const telemetryShutdownTimeout = 10 * time.Second

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the catalog into the store",
		Long: `Run one reconciliation pass of the configured CKAN catalog into the store.

With --watch the pass is repeated on the configured sync.interval until the process
receives SIGINT or SIGTERM.

Examples:
  catalog-sync sync --config config.yaml
  catalog-sync sync --config config.yaml --watch --verbose`,
		RunE: runSync,
	}

	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	cmd.Flags().Bool("watch", false, "Repeat the sync on the configured interval")
	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Sync.Verbose && !verboseMode {
		syncLogger()
		verboseMode = true
		rootLogger, syncLogger = setupLogging(true)
	}
	viper.Set("verbose", verboseMode)

	if cfg.StatusDir != "" {
		lock, err := status.AcquireRunLock(cfg.StatusDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				rootLogger.Error(err, "Failed to release run lock")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logr.NewContext(ctx, rootLogger)

	version := versions.Get().Version
	rootLogger.Info("Starting catalog-sync",
		"version", version,
		"config", configPath,
		"server", cfg.Catalog.Server,
		"store", cfg.Store.GetType(),
		"collection", cfg.Store.GetMainCollection(),
		"groupByPackage", cfg.Sync.GroupByPackage)

	tel, err := telemetry.New(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			rootLogger.Error(err, "Failed to shut down telemetry")
		}
	}()

	metrics, err := tel.SyncMetrics()
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	manager, err := buildManager(cfg, tel.Tracer(), version)
	if err != nil {
		return err
	}
	coord, closeCoordinator := buildCoordinator(cfg, manager, metrics, version)
	defer closeCoordinator()

	if watch {
		return coord.Start(ctx)
	}

	stats, err := coord.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	rootLogger.V(1).Info("Run statistics",
		"runId", stats.RunID,
		"packages", stats.Packages,
		"syncd", stats.Syncd,
		"updated", stats.Updated,
		"inserted", stats.Inserted,
		"removed", stats.Removed,
		"errors", stats.Errors,
		"enrichFailures", stats.EnrichFailures,
		"cacheInvalidated", stats.CacheInvalidated,
		"duration", stats.Duration())
	return nil
}
