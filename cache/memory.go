package cache

import (
	"context"
	"sync"

	"github.com/cpp4you/snippetexec/sandbox"
)

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]sandbox.ExecutionResult
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]sandbox.ExecutionResult)}
}

// Get returns the cached result for key.
func (m *Memory) Get(_ context.Context, key Key) (sandbox.ExecutionResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.entries[key]
	return res, ok, nil
}

// Put stores res under key when it is cacheable.
func (m *Memory) Put(_ context.Context, key Key, res sandbox.ExecutionResult) error {
	if !Cacheable(res) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = res
	return nil
}

// Len returns the number of cached results.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Cache = (*Memory)(nil)
