package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisaside"
)

// Compile-time interface checks.
var (
	_ Cache[struct{}]   = (*RueidisAsideCache[struct{}])(nil)
	_ Fetcher[struct{}] = (*RueidisAsideCache[struct{}])(nil)
)

// RueidisAsideCache is a Redis-backed Cache that additionally serves
// reads from the rueidis client-side cache (RESP3 invalidation) and
// collapses concurrent misses on a key into one fetch via rueidisaside.
// Suitable for deployments with many instances hitting the same keys.
type RueidisAsideCache[T any] struct {
	client    rueidisaside.CacheAsideClient
	keyPrefix string

	// clientTTL bounds how long a connection-local copy may be served
	// before revalidating against Redis.
	clientTTL time.Duration
}

// NewRueidisAsideCache connects to Redis with client-side caching
// enabled.
func NewRueidisAsideCache[T any](
	addr, password string,
	db int,
	keyPrefix string,
	clientTTL time.Duration,
) (*RueidisAsideCache[T], error) {
	client, err := rueidisaside.NewClient(rueidisaside.ClientOption{
		ClientOption: rueidis.ClientOption{
			InitAddress: []string{addr},
			Password:    password,
			SelectDB:    db,
			// The cached payloads here are small aggregates, not a
			// general object cache.
			CacheSizeEachConn: 16 << 20,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rueidisaside client: %w", err)
	}

	return &RueidisAsideCache[T]{
		client:    client,
		keyPrefix: keyPrefix,
		clientTTL: clientTTL,
	}, nil
}

// Get retrieves and decodes the value stored under key. The read goes
// through the client-side cache, so repeated calls within clientTTL do
// not touch Redis.
func (c *RueidisAsideCache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	underlying := c.client.Client()
	cmd := underlying.B().Get().Key(c.keyPrefix + key).Cache()
	resp := underlying.DoCache(ctx, cmd, c.clientTTL)
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return zero, ErrCacheMiss
		}
		return zero, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	var value T
	if err := resp.DecodeJSON(&value); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}

// GetWithFetch returns the cached value for key. On a miss, concurrent
// callers across all instances are collapsed into a single fetch whose
// result is stored with the given TTL. Errors from fetch pass through
// unwrapped.
func (c *RueidisAsideCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context, key string) (T, error),
) (T, error) {
	var zero T

	raw, err := c.client.Get(ctx, ttl, c.keyPrefix+key,
		func(ctx context.Context, _ string) (string, error) {
			value, err := fetch(ctx, key)
			if err != nil {
				return "", err
			}
			encoded, err := json.Marshal(value)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
			}
			return rueidis.BinaryString(encoded), nil
		})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}

// Set encodes the value as JSON and stores it under key with the given
// TTL. Writing through the underlying client invalidates other
// instances' client-side copies.
func (c *RueidisAsideCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	underlying := c.client.Client()
	cmd := underlying.B().Set().
		Key(c.keyPrefix + key).
		Value(rueidis.BinaryString(encoded)).
		Ex(ttl).
		Build()
	if err := underlying.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RueidisAsideCache[T]) Close() error {
	c.client.Close()
	return nil
}

// Health pings Redis.
func (c *RueidisAsideCache[T]) Health(ctx context.Context) error {
	underlying := c.client.Client()
	if err := underlying.Do(ctx, underlying.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
