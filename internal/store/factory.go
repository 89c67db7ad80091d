package store

import (
	"context"
	"fmt"
	"time"

	"github.com/opendata-sync/catalog-sync/internal/config"
)

// New opens the store described by cfg
func New(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.GetType() {
	case config.StoreTypeMongo:
		return NewMongoStore(ctx, MongoOptions{
			URL:             cfg.URL,
			Database:        cfg.Database,
			MainCollection:  cfg.GetMainCollection(),
			StatsCollection: cfg.StatsCollection,
		})
	case config.StoreTypePostgres:
		connString, err := cfg.Postgres.GetConnectionString()
		if err != nil {
			return nil, err
		}
		var lifetime time.Duration
		if cfg.Postgres.ConnMaxLifetime != "" {
			lifetime, err = time.ParseDuration(cfg.Postgres.ConnMaxLifetime)
			if err != nil {
				return nil, fmt.Errorf("invalid connMaxLifetime: %w", err)
			}
		}
		return NewPostgresStore(ctx, PostgresOptions{
			ConnString:      connString,
			MaxConns:        cfg.Postgres.MaxOpenConns,
			ConnMaxLifetime: lifetime,
			MainCollection:  cfg.GetMainCollection(),
			RecordStats:     cfg.StatsCollection != "",
		})
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
