package tokenstore

import (
	"context"
	"sync"
)

// NewMemory returns a Store backed by an in-memory map.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Memory implements Store for tests and single-process use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// Get returns the value stored under key.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	value, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores every entry of values.
func (m *Memory) Set(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	for k, v := range values {
		m.values[k] = v
	}
	m.mu.Unlock()
	return nil
}

// Delete removes the keys.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.values, k)
	}
	m.mu.Unlock()
	return nil
}

// Len reports how many keys are stored. Useful for tests.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
