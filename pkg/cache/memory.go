package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	expiresAt time.Time
	value     V
}

// Memory is an in-process cache. Expired entries are dropped lazily on read.
type Memory[V any] struct {
	items      map[string]memoryEntry[V]
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

// NewMemory creates an in-memory cache.
func NewMemory[V any](defaultTTL time.Duration) *Memory[V] {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Memory[V]{
		items:      make(map[string]memoryEntry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get implements Cache.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		var zero V
		if ok {
			m.mu.Lock()
			delete(m.items, key)
			m.mu.Unlock()
		}
		return zero, ErrNotFound
	}
	return e.value, nil
}

// Set implements Cache.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	m.items[key] = memoryEntry[V]{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

var _ Cache[any] = (*Memory[any])(nil)
