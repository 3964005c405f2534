package blob

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	filename string
	data     []byte
}

// Memory is an in-process blob store.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]entry
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]entry)}
}

func (m *Memory) Put(_ context.Context, filename string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[id] = entry{filename: filename, data: cp}
	return id, nil
}

func (m *Memory) Get(_ context.Context, id string) (string, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.blobs[id]
	if !ok {
		return "", nil, ErrNotFound
	}
	cp := make([]byte, len(e.data))
	copy(cp, e.data)
	return e.filename, cp, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

// Len reports the number of stored blobs. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
