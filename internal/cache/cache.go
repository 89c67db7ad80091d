// Package cache invalidates downstream result caches after a run changed the store.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -destination=mocks/mock_invalidator.go -package=mocks -source=cache.go Invalidator

// Invalidator drops every entry of a result cache
type Invalidator interface {
	Name() string
	Invalidate(ctx context.Context) error
}

// Clearer is the store capability used by CollectionInvalidator
type Clearer interface {
	ClearCollection(ctx context.Context, name string) error
}

// CollectionInvalidator clears a cache collection of the document store
type CollectionInvalidator struct {
	store      Clearer
	collection string
}

// NewCollectionInvalidator creates an invalidator clearing collection
func NewCollectionInvalidator(store Clearer, collection string) *CollectionInvalidator {
	return &CollectionInvalidator{store: store, collection: collection}
}

// Name implements Invalidator
func (c *CollectionInvalidator) Name() string {
	return "collection:" + c.collection
}

// Invalidate implements Invalidator
func (c *CollectionInvalidator) Invalidate(ctx context.Context) error {
	return c.store.ClearCollection(ctx, c.collection)
}

// RedisInvalidator deletes cached results from redis
type RedisInvalidator struct {
	client    redis.UniversalClient
	keyPrefix string
	batchSize int64
}

// NewRedisInvalidator creates an invalidator deleting the keys starting with keyPrefix.
// An empty prefix flushes the selected database.
func NewRedisInvalidator(client redis.UniversalClient, keyPrefix string) *RedisInvalidator {
	return &RedisInvalidator{client: client, keyPrefix: keyPrefix, batchSize: 500}
}

// Name implements Invalidator
func (r *RedisInvalidator) Name() string {
	if r.keyPrefix == "" {
		return "redis"
	}
	return "redis:" + r.keyPrefix
}

// Invalidate implements Invalidator
func (r *RedisInvalidator) Invalidate(ctx context.Context) error {
	if r.keyPrefix == "" {
		if err := r.client.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("failed to flush redis: %w", err)
		}
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.keyPrefix+"*", r.batchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan redis keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete redis keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Multi invalidates several caches. Every cache is attempted even if one fails.
type Multi []Invalidator

// Name implements Invalidator
func (m Multi) Name() string {
	return "multi"
}

// Invalidate implements Invalidator
func (m Multi) Invalidate(ctx context.Context) error {
	var errs []error
	for _, inv := range m {
		if err := inv.Invalidate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", inv.Name(), err))
		}
	}
	return errors.Join(errs...)
}
