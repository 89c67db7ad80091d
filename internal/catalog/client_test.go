package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendata-sync/catalog-sync/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]ClientOption{WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })}, opts...)
	return NewClient(server.URL+"/", httpclient.NewDefaultClient(0), opts...)
}

func packagePage(ids ...string) string {
	body := `{"success": true, "result": [`
	for i, id := range ids {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id": %q, "name": "pkg-%s", "title": "Package %s",
			"resources": [{"id": "r-%s", "url": "http://files/%s.csv", "format": "CSV", "size": 12}]}`,
			id, id, id, id, id)
	}
	return body + "]}"
}

func TestExport_Paginates(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"0": packagePage("a", "b"),
		"2": packagePage("c", "a"),
		"4": packagePage(),
	}
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/3/action/current_package_list_with_resources", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(pages[r.URL.Query().Get("offset")]))
	}, WithPageSize(2))

	snapshot, err := client.Export(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, snapshot.Len())
	assert.Equal(t, "a", snapshot.Packages[0].ID)
	assert.Equal(t, "b", snapshot.Packages[1].ID)
	assert.Equal(t, "c", snapshot.Packages[2].ID)
	assert.Equal(t, int32(3), calls.Load())

	pkg := snapshot.Packages[0]
	require.Len(t, pkg.Resources, 1)
	assert.Equal(t, "CSV", pkg.Resources[0].Format)
	require.Len(t, pkg.RawResources, 1)
	assert.Equal(t, float64(12), pkg.RawResources[0]["size"])
}

// catalogServer serves ids in pages of at most rowsMax packages, whatever limit is asked for
func catalogServer(rowsMax int, calls *atomic.Int32, ids ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit = min(limit, rowsMax)
		start := min(offset, len(ids))
		end := min(start+limit, len(ids))
		_, _ = w.Write([]byte(packagePage(ids[start:end]...)))
	}
}

func TestExport_ServerCapsPageSize(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, catalogServer(2, &calls, "a", "b", "c", "d", "e"), WithPageSize(5))

	snapshot, err := client.Export(context.Background())
	require.NoError(t, err)

	require.Equal(t, 5, snapshot.Len())
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, id, snapshot.Packages[i].ID)
	}
	// pages at 0, 2 and 4 plus the empty page at 5
	assert.Equal(t, int32(4), calls.Load())
}

func TestExport_StopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, catalogServer(100, &calls, "a"), WithPageSize(5))

	snapshot, err := client.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Len())
	assert.Equal(t, int32(2), calls.Load())
}

func TestExport_RepeatedPageFails(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(packagePage("a", "b")))
	}, WithPageSize(2))

	snapshot, err := client.Export(context.Background())
	require.ErrorIs(t, err, ErrInconsistentPaging)
	assert.Nil(t, snapshot)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExport_RetriesTemporaryFailures(t *testing.T) {
	t.Parallel()

	var calls, served atomic.Int32
	serve := catalogServer(100, &served, "a")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		serve(w, r)
	}, WithMaxAttempts(3))

	snapshot, err := client.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Len())
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(2), served.Load())
}

func TestExport_PermanentFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantCalls int32
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: "HTTP 404", wantCalls: 1},
		{name: "action failure", status: http.StatusOK, body: `{"success": false, "error": {"message": "Access denied"}}`,
			wantErr: "Access denied", wantCalls: 1},
		{name: "invalid json", status: http.StatusOK, body: `<html>`, wantErr: "invalid JSON", wantCalls: 1},
		{name: "server error exhausts retries", status: http.StatusInternalServerError, wantErr: "HTTP 500", wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Export(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestLookupVocabulary(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/3/action/vocabulary_show", r.URL.Path)
		switch r.URL.Query().Get("id") {
		case "v1":
			_, _ = w.Write([]byte(`{"success": true, "result": {"id": "v1", "name": "themes", "tags": []}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success": false, "error": {"message": "Not found"}}`))
		}
	})

	vocab, err := client.LookupVocabulary(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, &Vocabulary{ID: "v1", Name: "themes"}, vocab)

	_, err = client.LookupVocabulary(context.Background(), "missing")
	require.Error(t, err)
}

func TestPackageAccessors(t *testing.T) {
	t.Parallel()

	pkg := Package{MetadataModified: "2024-01-02"}
	assert.Equal(t, "2024-01-02", pkg.Modified())
	pkg.RevisionTimestamp = "2024-03-04"
	assert.Equal(t, "2024-03-04", pkg.Modified())

	res := Resource{LastModified: "2024-05-06"}
	assert.Equal(t, "2024-05-06", res.Modified())

	tag := Tag{Name: "bus"}
	assert.False(t, tag.IsActive())
	assert.Equal(t, "bus", tag.Label())
	tag.State = StateActive
	assert.True(t, tag.IsActive())
	tag = Tag{Name: "bus", DisplayName: "Bus", State: "deleted"}
	assert.False(t, tag.IsActive())
	assert.Equal(t, "Bus", tag.Label())

	assert.True(t, (&Extra{State: StateActive}).IsActive())
	assert.True(t, (&Extra{}).IsActive())
	assert.False(t, (&Extra{State: "deleted"}).IsActive())

	var nilSnapshot *Snapshot
	assert.Zero(t, nilSnapshot.Len())
}
