package cache

import (
	"context"
	"strings"
	"sync"
)

// MemoryBackend keeps entries in process memory. Expired entries are
// overwritten on the next fill rather than swept.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*Entry)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, entry *Entry) error {
	cp := *entry
	m.mu.Lock()
	m.entries[key] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
