package cache

import (
	"github.com/redis/go-redis/v9"

	"github.com/opendata-sync/catalog-sync/internal/config"
)

// New builds the invalidators configured for a run. The returned close function
// releases the redis client, if any. Without any cache configured the invalidator is nil.
func New(cfg *config.Config, store Clearer) (Invalidator, func() error) {
	var invalidators Multi
	closeFn := func() error { return nil }

	if cfg.Store.CacheCollection != "" {
		invalidators = append(invalidators, NewCollectionInvalidator(store, cfg.Store.CacheCollection))
	}

	if cfg.Cache != nil && cfg.Cache.Redis != nil {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.Redis.Address,
			DB:   cfg.Cache.Redis.DB,
		})
		invalidators = append(invalidators, NewRedisInvalidator(client, cfg.Cache.Redis.KeyPrefix))
		closeFn = client.Close
	}

	if len(invalidators) == 0 {
		return nil, closeFn
	}
	return invalidators, closeFn
}
