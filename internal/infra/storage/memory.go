package storage

import (
	"context"
	"sync"
)

// Memory is an in-process SecureStorage used by tests and ephemeral clients.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemory constructs an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	return value, ok, nil
}

func (m *Memory) DeleteItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Available(_ context.Context) bool { return true }

// Len reports the number of stored items.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
