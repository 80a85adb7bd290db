package metrics

import (
	"context"
	"time"

	"github.com/robert0714/scm-ldap-plugin/internal/cache"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
)

// UserCounts maps an auth source to its current number of user accounts.
type UserCounts = map[string]int64

// userCountSources are the auth sources the users gauge reports on.
// Sources with no rows are reported as zero so the gauge drops back
// when the last user of a source is removed.
var userCountSources = []string{"local", "ldap", "http_api"}

// userCountsKey is the cache key for the aggregate, mirroring the one
// aggregate query that produces it.
const userCountsKey = "users_by_source"

// CacheWrapper provides a read-through cache for the periodic gauge data,
// so multi-instance deployments issue one database query per TTL window
// instead of one per instance.
type CacheWrapper struct {
	store core.MetricsStore
	cache cache.Cache[UserCounts]
}

// NewCacheWrapper creates a new cache wrapper for gauge updates.
func NewCacheWrapper(store core.MetricsStore, c cache.Cache[UserCounts]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: c,
	}
}

// GetUsersBySource retrieves per-auth-source user counts, cached as one
// aggregate value. Backends that support it collapse concurrent misses
// across instances into a single database query; otherwise the wrapper
// queries on miss and repopulates the cache itself.
func (m *CacheWrapper) GetUsersBySource(
	ctx context.Context,
	ttl time.Duration,
) (UserCounts, error) {
	if fetcher, ok := m.cache.(cache.Fetcher[UserCounts]); ok {
		var (
			fetchRan bool
			fresh    UserCounts
		)
		counts, err := fetcher.GetWithFetch(ctx, userCountsKey, ttl,
			func(ctx context.Context, _ string) (UserCounts, error) {
				fetchRan = true
				queried, qerr := m.queryCounts()
				if qerr == nil {
					fresh = queried
				}
				return queried, qerr
			})
		if err == nil {
			return counts, nil
		}
		if fresh != nil {
			// The query succeeded and only the cache write-back failed;
			// the counts are still good.
			return fresh, nil
		}
		if fetchRan {
			return nil, err
		}
		// The cache backend is unreachable; serve from the database.
		return m.queryCounts()
	}

	if counts, err := m.cache.Get(ctx, userCountsKey); err == nil {
		return counts, nil
	}

	counts, err := m.queryCounts()
	if err != nil {
		return nil, err
	}
	// Best-effort cache write; the counts are already in hand.
	_ = m.cache.Set(ctx, userCountsKey, counts, ttl)
	return counts, nil
}

// queryCounts runs the aggregate query and normalizes the result to
// cover every reported source.
func (m *CacheWrapper) queryCounts() (UserCounts, error) {
	stored, err := m.store.CountUsersByAuthSource()
	if err != nil {
		return nil, err
	}

	counts := make(UserCounts, len(userCountSources))
	for _, source := range userCountSources {
		counts[source] = stored[source]
	}
	return counts, nil
}
