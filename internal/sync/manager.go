package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opendata-sync/catalog-sync/internal/cache"
	"github.com/opendata-sync/catalog-sync/internal/catalog"
	"github.com/opendata-sync/catalog-sync/internal/config"
	"github.com/opendata-sync/catalog-sync/internal/filtering"
	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/otel"
	"github.com/opendata-sync/catalog-sync/internal/status"
	"github.com/opendata-sync/catalog-sync/internal/store"
)

// Manager runs reconciliation passes of the catalog into the store
//
//go:generate mockgen -destination=coordinator/mocks/mock_manager.go -package=mocks github.com/opendata-sync/catalog-sync/internal/sync Manager
type Manager interface {
	// PerformSync runs one full pass. The returned stats are never nil, even when the run failed.
	PerformSync(ctx context.Context) (*status.RunStats, *Error)
}

// Enricher merges resource payloads into items before they are written
type Enricher interface {
	// Enrich returns every field it may derive on it, whether or not it succeeded
	Enrich(ctx context.Context, it item.Item) ([]string, error)
}

// StoreOpener connects to the document store for one run
type StoreOpener func(ctx context.Context) (store.Store, error)

// InvalidatorFactory builds the cache invalidator of a run bound to its open store.
// The returned function releases whatever the invalidator holds. A nil invalidator
// means no cache is configured.
type InvalidatorFactory func(s store.Store) (cache.Invalidator, func() error)

// Options controls a sync pass
type Options struct {
	// Collection names the main collection in logs and spans
	Collection string

	// Version is recorded in the statistics of every run
	Version string

	GroupByPackage           bool
	SkipCleanupWhenUnchanged bool
	RetainVocabularyCache    bool

	Filter *config.FilterConfig
}

// OptionsFromConfig derives the pass options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Collection:               cfg.Store.GetMainCollection(),
		GroupByPackage:           cfg.Sync.GroupByPackage,
		SkipCleanupWhenUnchanged: cfg.Sync.SkipCleanupWhenUnchanged,
		RetainVocabularyCache:    cfg.Sync.RetainVocabularyCache,
		Filter:                   cfg.Catalog.Filter,
	}
}

// Dependencies are the collaborators of the manager. Source, OpenStore and Builder are required.
type Dependencies struct {
	Source         catalog.Source
	FilterService  filtering.FilterService
	OpenStore      StoreOpener
	Builder        *item.Builder
	Resolver       *item.Resolver
	Enricher       Enricher
	Detector       ChangeDetector
	NewInvalidator InvalidatorFactory
	Tracer         trace.Tracer
	Now            func() time.Time
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	deps Dependencies
	opts Options
}

// NewDefaultSyncManager creates a new defaultSyncManager, filling unset optional dependencies
func NewDefaultSyncManager(deps Dependencies, opts Options) Manager {
	if deps.FilterService == nil {
		deps.FilterService = filtering.NewDefaultFilterService()
	}
	if deps.Detector == nil {
		deps.Detector = DefaultChangeDetector{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &defaultSyncManager{deps: deps, opts: opts}
}

// workItem is one pending candidate: a resource of pkg, or pkg itself in group mode
type workItem struct {
	pkg *catalog.Package
	res *catalog.Resource
}

func (w workItem) ckanID() string {
	if w.res != nil {
		return w.res.ID
	}
	return w.pkg.ID
}

// run holds the state of a single pass. It is discarded when the pass ends.
type run struct {
	*defaultSyncManager
	store   store.Store
	stats   *status.RunStats
	fetched map[string]struct{}
}

// PerformSync implements Manager
func (s *defaultSyncManager) PerformSync(ctx context.Context) (*status.RunStats, *Error) {
	ctx, span := otel.StartSpan(ctx, s.deps.Tracer, "sync.PerformSync",
		trace.WithAttributes(
			otel.AttrCollection.String(s.opts.Collection),
			otel.AttrGroupMode.Bool(s.opts.GroupByPackage),
		))
	defer span.End()

	logger := logr.FromContextOrDiscard(ctx).WithValues("collection", s.opts.Collection)
	ctx = logr.NewContext(ctx, logger)

	r := &run{
		defaultSyncManager: s,
		stats:              status.NewRunStats(s.deps.Now()),
		fetched:            make(map[string]struct{}),
	}
	r.stats.Version = s.opts.Version

	if !s.opts.RetainVocabularyCache && s.deps.Resolver != nil {
		s.deps.Resolver.Reset()
	}

	syncErr := r.execute(ctx)
	if syncErr != nil {
		r.stats.Fail(s.deps.Now(), syncErr.Message)
		otel.RecordError(span, syncErr)
	} else {
		r.stats.Complete(s.deps.Now())
	}

	span.SetAttributes(
		attribute.Int("sync.inserted", r.stats.Inserted),
		attribute.Int("sync.updated", r.stats.Updated),
		attribute.Int("sync.syncd", r.stats.Syncd),
		otel.AttrRemovedCount.Int(r.stats.Removed),
		attribute.Int("sync.errors", r.stats.Errors),
	)

	if r.store != nil {
		if err := r.store.SaveStats(ctx, r.stats); err != nil {
			logger.Error(err, "Failed to save run statistics")
			if syncErr == nil {
				syncErr = newError(KindStats, err, "failed to save run statistics: %v", err)
			}
		}
		if err := r.store.Close(ctx); err != nil {
			logger.Error(err, "Failed to close store")
		}
	}

	logger.V(1).Info("Sync finished",
		"phase", r.stats.Phase,
		"syncd", r.stats.Syncd,
		"inserted", r.stats.Inserted,
		"updated", r.stats.Updated,
		"removed", r.stats.Removed,
		"errors", r.stats.Errors,
		"enrichFailures", r.stats.EnrichFailures,
	)
	return r.stats, syncErr
}

// execute runs every step up to the cache invalidation. The store, once opened, is left open.
func (r *run) execute(ctx context.Context) *Error {
	logger := logr.FromContextOrDiscard(ctx)

	st, err := r.deps.OpenStore(ctx)
	if err != nil {
		return newError(KindConnection, err, "failed to connect to store: %v", err)
	}
	r.store = st

	snapshot, err := r.fetch(ctx)
	if err != nil {
		return newError(KindFetch, err, "failed to fetch catalog: %v", err)
	}

	r.stats.Packages = snapshot.Len()
	queue := r.plan(ctx, snapshot)
	logger.V(1).Info("Processing catalog", "packages", snapshot.Len(), "items", len(queue))

	for i := range queue {
		if err := ctx.Err(); err != nil {
			return newError(KindCanceled, err, "sync canceled after %d of %d items: %v", i, len(queue), err)
		}
		r.process(ctx, queue[i])
	}

	if r.opts.SkipCleanupWhenUnchanged && r.stats.Inserted+r.stats.Updated == 0 {
		logger.V(1).Info("Skipping cleanup, nothing was inserted or updated")
	} else if err := r.cleanup(ctx); err != nil {
		r.invalidateCache(ctx)
		return newError(KindCleanup, err, "failed to remove orphaned items: %v", err)
	}

	r.invalidateCache(ctx)
	return nil
}

// fetch exports the catalog and applies the configured package filter
func (r *run) fetch(ctx context.Context) (*catalog.Snapshot, error) {
	ctx, span := otel.StartSpan(ctx, r.deps.Tracer, "sync.Export")
	defer span.End()

	snapshot, err := r.deps.Source.Export(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	filtered, err := r.deps.FilterService.ApplyFilters(ctx, snapshot, r.opts.Filter)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to filter catalog: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int(filtered.Len()))
	return filtered, nil
}

// plan lays out the pending items in catalog order and records the fetched ids
func (r *run) plan(ctx context.Context, snapshot *catalog.Snapshot) []workItem {
	logger := logr.FromContextOrDiscard(ctx)

	queue := make([]workItem, 0, snapshot.Len())
	for i := range snapshot.Packages {
		pkg := &snapshot.Packages[i]

		if r.opts.GroupByPackage {
			queue = append(queue, workItem{pkg: pkg})
			r.fetched[pkg.ID] = struct{}{}
			continue
		}

		if len(pkg.Resources) == 0 {
			logger.V(1).Info("Package has no resources", "package", pkg.Name)
			continue
		}
		for j := range pkg.Resources {
			queue = append(queue, workItem{pkg: pkg, res: &pkg.Resources[j]})
			r.fetched[pkg.Resources[j].ID] = struct{}{}
		}
	}
	return queue
}

// process drives one item to a terminal state: syncd, inserted, updated or failed
func (r *run) process(ctx context.Context, w workItem) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("package", w.pkg.Name, "ckanId", w.ckanID())
	ctx = logr.NewContext(ctx, logger)

	stored, err := r.store.Find(ctx, w.ckanID())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		r.fail(ctx, &ItemError{CKANID: w.ckanID(), Op: OpFind, Err: err})
		return
	}

	candidate, buildErr := r.build(ctx, w)
	if buildErr != nil {
		r.fail(ctx, &ItemError{CKANID: w.ckanID(), Op: OpBuild, Err: buildErr})
		return
	}

	if stored == nil {
		r.insert(ctx, candidate)
		return
	}
	r.update(ctx, candidate, stored)
}

func (r *run) build(ctx context.Context, w workItem) (item.Item, error) {
	if w.res != nil {
		return r.deps.Builder.BuildResource(ctx, w.pkg, w.res)
	}
	return r.deps.Builder.BuildPackage(ctx, w.pkg)
}

// enrich returns the derived keys of candidate and whether enrichment succeeded
func (r *run) enrich(ctx context.Context, candidate item.Item) ([]string, bool) {
	if r.deps.Enricher == nil {
		return nil, true
	}

	derived, err := r.deps.Enricher.Enrich(ctx, candidate)
	if err != nil {
		itemErr := &ItemError{CKANID: candidate.CKANID(), Op: OpEnrich, Err: err}
		logr.FromContextOrDiscard(ctx).Info("Enrichment failed, writing item without payload", "error", err.Error())
		r.stats.AddEnrichFailure(itemErr.Error())
		return derived, false
	}
	return derived, true
}

func (r *run) insert(ctx context.Context, candidate item.Item) {
	r.enrich(ctx, candidate)

	if err := r.store.Insert(ctx, candidate); err != nil {
		r.fail(ctx, &ItemError{CKANID: candidate.CKANID(), Op: OpInsert, Err: err})
		return
	}
	r.stats.Inserted++
	logr.FromContextOrDiscard(ctx).V(1).Info("Inserted item")
}

// update compares the catalog fields first and only downloads the payload of an item
// that is written. Data and derived keys are not on the candidate yet, so they never
// count as a difference.
func (r *run) update(ctx context.Context, candidate, stored item.Item) {
	if !r.deps.Detector.Differs(candidate, stored, nil) {
		r.stats.Syncd++
		logr.FromContextOrDiscard(ctx).V(1).Info("Item unchanged")
		return
	}

	if derived, ok := r.enrich(ctx, candidate); !ok {
		// keep what the last successful enrichment stored
		for _, key := range derived {
			if value, present := stored[key]; present {
				candidate[key] = value
			}
		}
	}

	candidate[item.FieldID] = stored[item.FieldID]
	if err := r.store.Save(ctx, candidate); err != nil {
		r.fail(ctx, &ItemError{CKANID: candidate.CKANID(), Op: OpUpdate, Err: err})
		return
	}
	r.stats.Updated++
	logr.FromContextOrDiscard(ctx).V(1).Info("Updated item")
}

func (r *run) fail(ctx context.Context, err *ItemError) {
	r.stats.AddError(err.Error())
	logr.FromContextOrDiscard(ctx).Error(err.Err, "Item failed", "op", err.Op)
}

// invalidateCache clears the downstream cache when the run changed the store
func (r *run) invalidateCache(ctx context.Context) {
	if r.stats.Changed() == 0 || r.deps.NewInvalidator == nil {
		return
	}

	logger := logr.FromContextOrDiscard(ctx)
	invalidator, release := r.deps.NewInvalidator(r.store)
	defer func() {
		if err := release(); err != nil {
			logger.Error(err, "Failed to release cache client")
		}
	}()

	if invalidator == nil {
		logger.V(1).Info("No cache configured, nothing to invalidate")
		return
	}

	if err := invalidator.Invalidate(ctx); err != nil {
		logger.Error(err, "Failed to invalidate cache", "cache", invalidator.Name())
		r.stats.LogError(fmt.Sprintf("Failed to invalidate cache %s. %v", invalidator.Name(), err))
		return
	}
	r.stats.CacheInvalidated = true
	logger.V(1).Info("Invalidated cache", "cache", invalidator.Name())
}
