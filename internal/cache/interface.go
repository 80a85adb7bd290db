package cache

import (
	"context"
	"time"
)

// Cache is the store shared by instances for periodically computed values,
// such as the per-source user counts behind the Prometheus gauges. The
// gauge path reads and writes the whole computed value under one key, so
// the contract is deliberately small: single-value operations plus
// lifecycle. T is the cached value type.
type Cache[T any] interface {
	// Get retrieves the value stored under key. Returns ErrCacheMiss when
	// the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a value under key with the given TTL.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Close releases the backend connection.
	Close() error

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error
}

// Fetcher is implemented by backends that can collapse concurrent misses
// on a key into a single fetch. Callers discover it by type assertion and
// fall back to Get plus Set otherwise.
type Fetcher[T any] interface {
	// GetWithFetch returns the cached value for key, calling fetch on a
	// miss and storing its result with the given TTL before returning it.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetch func(ctx context.Context, key string) (T, error),
	) (T, error)
}
