package cache

import (
	"context"
	"sync"

	"github.com/amishk599/jobfeed/internal/model"
)

// MemoryStore is a process-local EntryStore, used for dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[[2]string]model.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[[2]string]model.CacheEntry)}
}

func (m *MemoryStore) LoadEntry(_ context.Context, query, country string) (*model.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[[2]string{query, country}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStore) SaveEntry(_ context.Context, e model.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[[2]string{e.Query, e.Country}] = e
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
