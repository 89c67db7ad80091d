package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/status"
)

const (
	findDocumentSQL = `SELECT doc FROM documents WHERE collection = $1 AND ckan_id = $2
ORDER BY updated_at LIMIT 1`
	insertDocumentSQL = `INSERT INTO documents (id, collection, ckan_id, doc) VALUES ($1, $2, $3, $4)`
	upsertDocumentSQL = `INSERT INTO documents (id, collection, ckan_id, doc) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET ckan_id = EXCLUDED.ckan_id, doc = EXCLUDED.doc, updated_at = now()`
	listCKANIDsSQL     = `SELECT DISTINCT ckan_id FROM documents WHERE collection = $1`
	removeDocumentsSQL = `DELETE FROM documents WHERE collection = $1 AND ckan_id = ANY($2)`
	clearDocumentsSQL  = `DELETE FROM documents WHERE collection = $1`
	insertRunSQL       = `INSERT INTO sync_runs (run_id, collection, phase, stats, finished_at) VALUES ($1, $2, $3, $4, $5)`
)

// PostgresStore keeps items as JSONB documents in the documents table.
// Collections are a column of that table.
type PostgresStore struct {
	pool       *pgxpool.Pool
	collection string
	stats      bool
}

var _ Store = (*PostgresStore)(nil)

// PostgresOptions configures a PostgresStore
type PostgresOptions struct {
	ConnString      string
	MaxConns        int32
	ConnMaxLifetime time.Duration
	MainCollection  string

	// RecordStats enables the sync_runs table
	RecordStats bool
}

// NewPostgresStore opens a connection pool and verifies it
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStoreFromPool(pool, opts.MainCollection, opts.RecordStats), nil
}

// NewPostgresStoreFromPool wraps an existing pool
func NewPostgresStoreFromPool(pool *pgxpool.Pool, collection string, recordStats bool) *PostgresStore {
	return &PostgresStore{pool: pool, collection: collection, stats: recordStats}
}

// Find implements Store
func (s *PostgresStore) Find(ctx context.Context, ckanID string) (item.Item, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, findDocumentSQL, s.collection, ckanID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", ckanID, err)
	}

	var it item.Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ckanID, err)
	}
	return it, nil
}

// Insert implements Store
func (s *PostgresStore) Insert(ctx context.Context, it item.Item) error {
	key, err := recordKey(it, true)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", it.CKANID(), err)
	}
	if _, err := s.pool.Exec(ctx, insertDocumentSQL, key, s.collection, it.CKANID(), doc); err != nil {
		return fmt.Errorf("failed to insert %s: %w", it.CKANID(), err)
	}
	return nil
}

// Save implements Store
func (s *PostgresStore) Save(ctx context.Context, it item.Item) error {
	key, err := recordKey(it, false)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", it.CKANID(), err)
	}
	if _, err := s.pool.Exec(ctx, upsertDocumentSQL, key, s.collection, it.CKANID(), doc); err != nil {
		return fmt.Errorf("failed to save %s: %w", it.CKANID(), err)
	}
	return nil
}

// ListCKANIDs implements Store
func (s *PostgresStore) ListCKANIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, listCKANIDsSQL, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list ckan ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list ckan ids: %w", err)
	}
	return ids, nil
}

// RemoveByCKANIDs implements Store
func (s *PostgresStore) RemoveByCKANIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, removeDocumentsSQL, s.collection, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to remove orphans: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SaveStats implements Store
func (s *PostgresStore) SaveStats(ctx context.Context, stats *status.RunStats) error {
	if !s.stats {
		return nil
	}
	doc, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	runID, err := uuid.Parse(stats.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", stats.RunID, err)
	}
	finished := time.UnixMilli(stats.Timestamp).UTC()
	if _, err := s.pool.Exec(ctx, insertRunSQL, runID, s.collection, string(stats.Phase), doc, finished); err != nil {
		return fmt.Errorf("failed to save stats of run %s: %w", stats.RunID, err)
	}
	return nil
}

// ClearCollection implements Store
func (s *PostgresStore) ClearCollection(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, clearDocumentsSQL, name); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", name, err)
	}
	return nil
}

// Close implements Store
func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// recordKey returns the uuid key of it, assigning a new one when assign is set
func recordKey(it item.Item, assign bool) (uuid.UUID, error) {
	raw, _ := it[item.FieldID].(string)
	if raw == "" {
		if !assign {
			return uuid.Nil, ErrMissingKey
		}
		key := uuid.New()
		it[item.FieldID] = key.String()
		return key, nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid record key %q: %w", raw, err)
	}
	return key, nil
}
