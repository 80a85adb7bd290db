package cache

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the entry count past which Set drops expired entries
// before inserting, so callers that rotate keys do not grow the map
// without bound.
const sweepThreshold = 64

// Compile-time interface check.
var _ Cache[struct{}] = (*MemoryCache[struct{}])(nil)

type memoryEntry[T any] struct {
	value    T
	deadline time.Time
}

// MemoryCache is a process-local Cache. Expired entries are dropped
// lazily on read and swept on write once the map grows past the
// threshold. Suitable for single-instance deployments only; nothing is
// shared and nothing survives a restart.
type MemoryCache[T any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry[T]
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		entries: make(map[string]memoryEntry[T]),
	}
}

// Get retrieves the value stored under key, removing it when expired.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if ok && time.Now().After(e.deadline) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		var zero T
		return zero, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value under key with the given TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= sweepThreshold {
		for k, e := range m.entries {
			if now.After(e.deadline) {
				delete(m.entries, k)
			}
		}
	}

	m.entries[key] = memoryEntry[T]{
		value:    value,
		deadline: now.Add(ttl),
	}
	return nil
}

// Close drops all entries.
func (m *MemoryCache[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]memoryEntry[T])
	return nil
}

// Health always passes; there is no backend to lose.
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}
