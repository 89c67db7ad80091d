package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/opendata-sync/catalog-sync/internal/status"
	statusmocks "github.com/opendata-sync/catalog-sync/internal/status/mocks"
	"github.com/opendata-sync/catalog-sync/internal/sync"
	syncmocks "github.com/opendata-sync/catalog-sync/internal/sync/coordinator/mocks"
	"github.com/opendata-sync/catalog-sync/internal/telemetry"
)

const testCollection = "items"

type recordingNotifier struct {
	calls []*status.RunStats
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, stats *status.RunStats) error {
	r.calls = append(r.calls, stats)
	return r.err
}

func (*recordingNotifier) Close() error { return nil }

func completedStats() *status.RunStats {
	stats := status.NewRunStats(time.Now())
	stats.Packages = 2
	stats.Inserted = 3
	stats.Syncd = 1
	stats.Complete(time.Now())
	return stats
}

func TestWithJitter(t *testing.T) {
	t.Parallel()

	for range 50 {
		got := withJitter(time.Hour)
		assert.GreaterOrEqual(t, got, 57*time.Minute)
		assert.LessOrEqual(t, got, 63*time.Minute)
	}
	assert.Equal(t, time.Duration(10), withJitter(10))
}

func TestRunOnce_Success(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	persistence := statusmocks.NewMockStatusPersistence(ctrl)
	notifier := &recordingNotifier{}
	stats := completedStats()

	gomock.InOrder(
		persistence.EXPECT().LoadStatus(gomock.Any()).Return(nil, nil),
		persistence.EXPECT().SaveStatus(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, s *status.RunStats) {
				assert.Equal(t, status.SyncPhaseSyncing, s.Phase)
				assert.Equal(t, "1.2.0", s.Version)
			}).Return(nil),
		manager.EXPECT().PerformSync(gomock.Any()).Return(stats, nil),
		persistence.EXPECT().SaveStatus(gomock.Any(), stats).Return(nil),
	)

	c := New(manager, testCollection,
		WithStatusPersistence(persistence),
		WithNotifier(notifier),
		WithVersion("1.2.0"))
	got, err := c.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Same(t, stats, got)
	require.Len(t, notifier.calls, 1)
	assert.Same(t, stats, notifier.calls[0])
}

func TestRunOnce_Failure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	notifier := &recordingNotifier{}

	stats := status.NewRunStats(time.Now())
	stats.Fail(time.Now(), "failed to connect to store")
	syncErr := &sync.Error{Err: errors.New("dial tcp"), Message: "failed to connect to store", Kind: sync.KindConnection}
	manager.EXPECT().PerformSync(gomock.Any()).Return(stats, syncErr)

	got, err := New(manager, testCollection, WithNotifier(notifier)).RunOnce(context.Background())

	require.Error(t, err)
	var target *sync.Error
	require.ErrorAs(t, err, &target)
	assert.Equal(t, sync.KindConnection, target.Kind)
	assert.Equal(t, status.SyncPhaseFailed, got.Phase)
	assert.Empty(t, notifier.calls)
}

func TestRunOnce_PersistenceErrorsAreNotFatal(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	persistence := statusmocks.NewMockStatusPersistence(ctrl)

	last := status.NewRunStats(time.Now())
	last.Version = "2.0.0"
	persistence.EXPECT().LoadStatus(gomock.Any()).Return(last, nil)
	persistence.EXPECT().SaveStatus(gomock.Any(), gomock.Any()).Return(errors.New("read-only fs")).Times(2)
	manager.EXPECT().PerformSync(gomock.Any()).Return(completedStats(), nil)

	c := New(manager, testCollection,
		WithStatusPersistence(persistence),
		WithVersion("1.0.0"),
		WithNotifier(&recordingNotifier{err: errors.New("broker down")}))
	_, err := c.RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOnce_RunTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().PerformSync(gomock.Any()).DoAndReturn(func(ctx context.Context) (*status.RunStats, *sync.Error) {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return completedStats(), nil
	})

	_, err := New(manager, testCollection, WithRunTimeout(time.Minute)).RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOnce_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	metrics, err := telemetry.NewSyncMetrics(provider)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().PerformSync(gomock.Any()).Return(completedStats(), nil)

	_, err = New(manager, testCollection, WithSyncMetrics(metrics)).RunOnce(context.Background())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["catalog_sync_duration_seconds"])
	assert.True(t, names["catalog_sync_items_total"])
	assert.True(t, names["catalog_sync_packages"])
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	ran := make(chan struct{}, 1)
	manager.EXPECT().PerformSync(gomock.Any()).DoAndReturn(func(context.Context) (*status.RunStats, *sync.Error) {
		ran <- struct{}{}
		return completedStats(), nil
	}).MinTimes(1)

	c := New(manager, testCollection, WithInterval(time.Hour))

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("initial sync did not run")
	}

	require.NoError(t, c.Stop())
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().PerformSync(gomock.Any()).Return(completedStats(), nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(manager, testCollection, WithInterval(10*time.Millisecond))

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestStop_WithoutStart(t *testing.T) {
	t.Parallel()

	c := New(syncmocks.NewMockManager(gomock.NewController(t)), testCollection)
	assert.NoError(t, c.Stop())
}
