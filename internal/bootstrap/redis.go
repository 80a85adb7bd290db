package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/middleware"
)

// initializeRateLimitRedisClient initializes the go-redis client for rate limiting.
// Returns nil if rate limiting is disabled or using memory store.
// Note: rate limiting must use go-redis because ulule/limiter depends on go-redis types.
func initializeRateLimitRedisClient(
	cfg *config.Config,
	logger *zap.Logger,
) (*redis.Client, error) {
	// Skip if rate limiting is disabled
	if !cfg.RateLimitEnabled {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	// Skip if using memory store
	if cfg.RateLimitStore != config.RateLimitStoreRedis {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	client, err := middleware.CreateRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rate limit store: %w", err)
	}

	logger.Info("rate limiting redis client initialized",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB))
	return client, nil
}
