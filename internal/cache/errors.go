package cache

import "errors"

var (
	// ErrCacheMiss reports that a key is absent or expired. Callers treat
	// it as "recompute", not as a failure.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable wraps backend transport failures. With a broken
	// cache the gauge job falls back to querying the database directly.
	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue reports a stored value that does not parse as the
	// expected type, usually another writer with a different schema.
	ErrInvalidValue = errors.New("cache: invalid value")
)
