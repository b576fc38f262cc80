package docstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory Store for tests. Fail can be set to simulate
// a store outage; every call then returns ErrUnavailable.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	Fail        bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

// ListAll implements Store.
func (m *Memory) ListAll(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Fail {
		return nil, ErrUnavailable
	}

	ids := make([]string, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, Document{ID: id, Fields: m.collections[collection][id]})
	}
	return docs, nil
}

// SetDocument implements Store.
func (m *Memory) SetDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return ErrUnavailable
	}

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][id] = fields
	return nil
}
