package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/status"
)

// MemoryStore keeps items in process memory. It backs tests and dry runs.
type MemoryStore struct {
	mu          sync.Mutex
	items       map[string]item.Item
	order       []string
	stats       []*status.RunStats
	collections map[string]int
	closed      bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:       make(map[string]item.Item),
		collections: make(map[string]int),
	}
}

// Find implements Store
func (m *MemoryStore) Find(_ context.Context, ckanID string) (item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range m.order {
		if it := m.items[key]; it.CKANID() == ckanID {
			return it.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Insert implements Store
func (m *MemoryStore) Insert(_ context.Context, it item.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, _ := it[item.FieldID].(string)
	if key == "" {
		key = uuid.NewString()
		it[item.FieldID] = key
	}
	m.items[key] = it.Clone()
	m.order = append(m.order, key)
	return nil
}

// Save implements Store
func (m *MemoryStore) Save(_ context.Context, it item.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, _ := it[item.FieldID].(string)
	if key == "" {
		return ErrMissingKey
	}
	if _, ok := m.items[key]; !ok {
		m.order = append(m.order, key)
	}
	m.items[key] = it.Clone()
	return nil
}

// ListCKANIDs implements Store
func (m *MemoryStore) ListCKANIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.order))
	for _, key := range m.order {
		ids = append(ids, m.items[key].CKANID())
	}
	return ids, nil
}

// RemoveByCKANIDs implements Store
func (m *MemoryStore) RemoveByCKANIDs(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	m.order = slices.DeleteFunc(m.order, func(key string) bool {
		if slices.Contains(ids, m.items[key].CKANID()) {
			delete(m.items, key)
			removed++
			return true
		}
		return false
	})
	return removed, nil
}

// SaveStats implements Store
func (m *MemoryStore) SaveStats(_ context.Context, stats *status.RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *stats
	copied.ErrLog = slices.Clone(stats.ErrLog)
	m.stats = append(m.stats, &copied)
	return nil
}

// ClearCollection implements Store. It only counts the calls per collection.
func (m *MemoryStore) ClearCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[name]++
	return nil
}

// Close implements Store
func (m *MemoryStore) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Items returns a copy of the stored items in insertion order
func (m *MemoryStore) Items() []item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]item.Item, 0, len(m.order))
	for _, key := range m.order {
		items = append(items, maps.Clone(m.items[key]))
	}
	return items
}

// Stats returns the recorded run statistics
func (m *MemoryStore) Stats() []*status.RunStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stats)
}

// Cleared returns how many times a collection was cleared
func (m *MemoryStore) Cleared(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collections[name]
}

// Closed reports whether Close was called
func (m *MemoryStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
