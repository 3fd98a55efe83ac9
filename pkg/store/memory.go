package store

import (
	"context"
	"sync"
)

// Memory keeps sources in process memory. It survives cache eviction but
// not a restart.
type Memory struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{sources: make(map[string]string)}
}

func (m *Memory) Put(_ context.Context, key, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[key] = source
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	source, ok := m.sources[key]
	if !ok {
		return "", ErrNotFound
	}
	return source, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
