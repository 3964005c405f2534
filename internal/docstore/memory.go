package docstore

import (
	"context"
	"sync"
)

// Memory keeps documents in process memory. It backs unit tests and
// single-node development runs; production uses the Postgres store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, collection, id string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.docs[collection]
	if coll == nil {
		coll = make(map[string][]byte)
		m.docs[collection] = coll
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)
	coll[id] = cp
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if doc, ok := m.docs[collection][id]; ok {
		cp := make([]byte, len(doc))
		copy(cp, doc)
		return cp, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) List(_ context.Context, collection string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.docs[collection]))
	for id, doc := range m.docs[collection] {
		cp := make([]byte, len(doc))
		copy(cp, doc)
		out[id] = cp
	}
	return out, nil
}
