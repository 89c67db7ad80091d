package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/opendata-sync/catalog-sync/internal/notify"
	"github.com/opendata-sync/catalog-sync/internal/status"
	pkgsync "github.com/opendata-sync/catalog-sync/internal/sync"
	"github.com/opendata-sync/catalog-sync/internal/telemetry"
)

// Coordinator runs sync passes once or on an interval
type Coordinator interface {
	// RunOnce performs a single pass and returns its statistics
	RunOnce(ctx context.Context) (*status.RunStats, error)

	// Start performs a pass immediately, then one per interval.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator, waiting for a running pass to end
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager    pkgsync.Manager
	collection string
	version    string

	interval   time.Duration
	runTimeout time.Duration

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}

	persistence status.StatusPersistence
	notifier    notify.Notifier
	syncMetrics *telemetry.SyncMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithStatusPersistence persists the statistics of every run
func WithStatusPersistence(persistence status.StatusPersistence) Option {
	return func(c *defaultCoordinator) {
		c.persistence = persistence
	}
}

// WithNotifier publishes the summary of every run that changed the store
func WithNotifier(notifier notify.Notifier) Option {
	return func(c *defaultCoordinator) {
		c.notifier = notifier
	}
}

// WithVersion sets the version recorded in the syncing status and checked against the last run
func WithVersion(version string) Option {
	return func(c *defaultCoordinator) {
		c.version = version
	}
}

// WithInterval sets the pause between two runs in watch mode
func WithInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithRunTimeout bounds every run. Zero means no deadline.
func WithRunTimeout(timeout time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.runTimeout = timeout
	}
}

// New creates a new coordinator with injected dependencies
func New(manager pkgsync.Manager, collection string, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:    manager,
		collection: collection,
		interval:   defaultInterval,
		done:       make(chan struct{}),
		notifier:   notify.Noop{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins periodic sync passes
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting sync coordinator", "collection", c.collection, "interval", c.interval)

	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		slog.Info("Sync coordinator shutting down")
	}()

	// a pass runs on this goroutine, so ticks that fire during a pass are dropped
	ticker := time.NewTicker(withJitter(c.interval))
	defer ticker.Stop()

	c.performSync(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.performSync(coordCtx)
			ticker.Reset(withJitter(c.interval))
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		slog.Info("Stopping sync coordinator")
		c.cancelFunc()
		<-c.done
	}
	return nil
}

// RunOnce performs a single pass
func (c *defaultCoordinator) RunOnce(ctx context.Context) (*status.RunStats, error) {
	stats, syncErr := c.performSync(ctx)
	if syncErr != nil {
		return stats, syncErr
	}
	return stats, nil
}
