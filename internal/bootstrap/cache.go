package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/cache"
	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
)

const (
	// cacheInitTimeout bounds the initial connection to a Redis-backed cache
	cacheInitTimeout = 5 * time.Second

	// asideClientTTL is how long the rueidisaside client keeps entries in
	// its connection-local cache before revalidating against Redis
	asideClientTTL = time.Minute

	metricsCachePrefix = "ldap-auth:metrics:"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config, logger *zap.Logger) core.Recorder {
	rec := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		logger.Info("prometheus metrics initialized")
	} else {
		logger.Info("metrics disabled, using noop recorder")
	}
	return rec
}

// initializeMetricsCache initializes the gauge cache based on configuration.
// Returns a nil cache when the gauge update job is disabled.
func initializeMetricsCache(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (cache.Cache[metrics.UserCounts], func() error, error) {
	if !cfg.MetricsEnabled || cfg.MetricsGaugeInterval <= 0 {
		return nil, nil, nil //nolint:nilnil // gauge job disabled in this configuration
	}

	ctx, cancel := context.WithTimeout(ctx, cacheInitTimeout)
	defer cancel()

	switch cfg.MetricsCacheType {
	case config.MetricsCacheRedisAside:
		c, err := cache.NewRueidisAsideCache[metrics.UserCounts](
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			metricsCachePrefix,
			asideClientTTL,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis-aside metrics cache: %w", err)
		}
		if err := c.Health(ctx); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("failed to reach redis for metrics cache: %w", err)
		}
		logger.Info("metrics cache: redis-aside",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
			zap.Duration("client_ttl", asideClientTTL))
		return c, c.Close, nil

	case config.MetricsCacheRedis:
		c, err := cache.NewRueidisCache[metrics.UserCounts](
			ctx,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			metricsCachePrefix,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis metrics cache: %w", err)
		}
		logger.Info("metrics cache: redis",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB))
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCache[metrics.UserCounts]()
		logger.Info("metrics cache: memory (single instance only)")
		return c, c.Close, nil
	}
}
