package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/opendata-sync/catalog-sync/internal/cache"
	"github.com/opendata-sync/catalog-sync/internal/catalog"
	"github.com/opendata-sync/catalog-sync/internal/config"
	"github.com/opendata-sync/catalog-sync/internal/enrich"
	"github.com/opendata-sync/catalog-sync/internal/filtering"
	"github.com/opendata-sync/catalog-sync/internal/httpclient"
	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/notify"
	"github.com/opendata-sync/catalog-sync/internal/status"
	"github.com/opendata-sync/catalog-sync/internal/store"
	pkgsync "github.com/opendata-sync/catalog-sync/internal/sync"
	"github.com/opendata-sync/catalog-sync/internal/sync/coordinator"
	"github.com/opendata-sync/catalog-sync/internal/telemetry"
)

// buildManager wires the sync manager described by cfg. Parser definitions and
// post-processors are resolved here, once, so that a bad definition fails before any run.
func buildManager(cfg *config.Config, tracer trace.Tracer, version string) (pkgsync.Manager, error) {
	catalogClient := catalog.NewClient(
		cfg.Catalog.Server,
		httpclient.NewDefaultClient(cfg.Catalog.GetTimeout()),
		catalog.WithPageSize(cfg.Catalog.GetPageSize()),
		catalog.WithMaxAttempts(cfg.Catalog.GetMaxRetries()),
	)

	pipeline, err := item.NewRegistry().BuildPipeline(cfg.PostProcessors)
	if err != nil {
		return nil, fmt.Errorf("failed to build post-processors: %w", err)
	}
	resolver := item.NewResolver(catalogClient)

	enricher, err := buildEnricher(cfg)
	if err != nil {
		return nil, err
	}

	opts := pkgsync.OptionsFromConfig(cfg)
	opts.Version = version

	return pkgsync.NewDefaultSyncManager(pkgsync.Dependencies{
		Source:        catalogClient,
		FilterService: filtering.NewDefaultFilterService(),
		OpenStore: func(ctx context.Context) (store.Store, error) {
			return store.New(ctx, &cfg.Store)
		},
		Builder:  item.NewBuilder(resolver, pipeline),
		Resolver: resolver,
		Enricher: enricher,
		NewInvalidator: func(s store.Store) (cache.Invalidator, func() error) {
			return cache.New(cfg, s)
		},
		Tracer: tracer,
	}, opts), nil
}

// buildEnricher returns nil when no parser directory is configured
func buildEnricher(cfg *config.Config) (pkgsync.Enricher, error) {
	if cfg.Parsers == nil || cfg.Parsers.Directory == "" {
		return nil, nil
	}

	parsers, err := enrich.LoadDir(cfg.Parsers.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to load parsers: %w", err)
	}
	slog.Info("Loaded format parsers", "directory", cfg.Parsers.Directory, "formats", parsers.Formats())

	resources := cfg.Resources
	if resources == nil {
		resources = &config.ResourcesConfig{}
	}
	fetcher := httpclient.NewDefaultClient(resources.GetTimeout(),
		httpclient.WithAccept("*/*"),
		httpclient.WithRateLimit(resources.RateLimit, resources.Burst),
		httpclient.WithCircuitBreaker("resources", resources.BreakerFailures, resources.GetBreakerTimeout()),
	)
	return enrich.NewEnricher(fetcher, parsers), nil
}

// buildCoordinator wires the coordinator options described by cfg. The returned function
// releases the notifier.
func buildCoordinator(
	cfg *config.Config, manager pkgsync.Manager, metrics *telemetry.SyncMetrics, version string,
) (coordinator.Coordinator, func()) {
	opts := []coordinator.Option{
		coordinator.WithVersion(version),
		coordinator.WithSyncMetrics(metrics),
		coordinator.WithInterval(cfg.Sync.GetInterval()),
		coordinator.WithRunTimeout(cfg.Sync.GetRunTimeout()),
	}

	if cfg.StatusDir != "" {
		opts = append(opts, coordinator.WithStatusPersistence(status.NewFileStatusPersistence(cfg.StatusDir)))
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify != nil && cfg.Notify.Kafka != nil {
		notifier = notify.NewKafkaNotifier(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic,
			cfg.Store.GetMainCollection())
	}
	opts = append(opts, coordinator.WithNotifier(notifier))

	closeFn := func() {
		if err := notifier.Close(); err != nil {
			slog.Error("Failed to close notifier", "error", err)
		}
	}
	return coordinator.New(manager, cfg.Store.GetMainCollection(), opts...), closeFn
}
