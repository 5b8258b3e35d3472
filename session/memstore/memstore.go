// Package memstore provides the ephemeral session tier. Values live in
// process memory and are gone when the client exits, mirroring
// session-scoped browser storage.
package memstore

import (
	"fmt"
	"sync"

	"github.com/empowerhr/empower-client/internal/errors"
	"github.com/empowerhr/empower-client/session"
)

// MemStore is an in-memory implementation of session.Backend.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ session.Backend = (*MemStore)(nil)

// New creates an empty in-memory tier.
func New() *MemStore {
	return &MemStore{
		values: make(map[string]string),
	}
}

// Set stores a value under key.
func (m *MemStore) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Get retrieves a value by key.
func (m *MemStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", errors.ErrNotFound
	}
	return value, nil
}

// Delete removes a key. Removing an absent key is a no-op.
func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Clear drops every stored value.
func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[string]string)
	return nil
}

// Close is a no-op for the in-memory tier.
func (m *MemStore) Close() error {
	return nil
}
