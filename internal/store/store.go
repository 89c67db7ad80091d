// Package store persists items in a document store.
//
// Every backend keeps items of the main collection addressable by their
// ckan_id and by their record key (_id). The mongo backend is the default;
// the postgres backend stores items as JSONB documents.
package store

import (
	"context"
	"errors"

	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/status"
)

// ErrNotFound is returned when no item matches a lookup
var ErrNotFound = errors.New("item not found")

// ErrMissingKey is returned when an item is saved without a record key
var ErrMissingKey = errors.New("item has no record key")

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

// Store is the document store holding the main collection.
// A Store is opened once per run and closed exactly once.
type Store interface {
	// Find returns the stored item with the given ckan_id
	Find(ctx context.Context, ckanID string) (item.Item, error)

	// Insert adds a new item, assigning its record key
	Insert(ctx context.Context, it item.Item) error

	// Save replaces the item having the same record key
	Save(ctx context.Context, it item.Item) error

	// ListCKANIDs returns the ckan_id of every stored item
	ListCKANIDs(ctx context.Context) ([]string, error)

	// RemoveByCKANIDs deletes every item whose ckan_id is in ids and returns the number removed
	RemoveByCKANIDs(ctx context.Context, ids []string) (int, error)

	// SaveStats appends run statistics to the stats collection, if one is configured
	SaveStats(ctx context.Context, stats *status.RunStats) error

	// ClearCollection deletes every record of a secondary collection
	ClearCollection(ctx context.Context, name string) error

	// Close releases the connection
	Close(ctx context.Context) error
}
