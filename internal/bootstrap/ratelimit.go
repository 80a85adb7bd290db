package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/middleware"
)

// rateLimitCleanupInterval is how often the in-memory limiter store
// evicts expired counters
const rateLimitCleanupInterval = 5 * time.Minute

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login gin.HandlerFunc
	api   gin.HandlerFunc
}

// setupRateLimiting configures rate limiting middlewares based on configuration.
// The Redis client is shared between limiters and may be nil for the memory store.
func setupRateLimiting(
	cfg *config.Config,
	redisClient *redis.Client,
	recorder core.Recorder,
	logger *zap.Logger,
) (rateLimitMiddlewares, error) {
	if !cfg.RateLimitEnabled {
		noOp := func(c *gin.Context) { c.Next() }
		return rateLimitMiddlewares{login: noOp, api: noOp}, nil
	}

	logger.Info("rate limiting enabled",
		zap.String("store", cfg.RateLimitStore),
		zap.Int("login_per_minute", cfg.RateLimitLoginPerMinute),
		zap.Int("api_per_minute", cfg.RateLimitAPIPerMinute))

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)

	createLimiter := func(requestsPerMinute int, endpoint string) (gin.HandlerFunc, error) {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			StoreType:         storeType,
			RedisClient:       redisClient,
			CleanupInterval:   rateLimitCleanupInterval,
			Prefix:            "ratelimit:" + endpoint,
			OnLimitReached: func(c *gin.Context) {
				recorder.RecordRateLimitHit(endpoint)
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests. Please try again later.",
				})
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s rate limiter: %w", endpoint, err)
		}
		return limiter, nil
	}

	login, err := createLimiter(cfg.RateLimitLoginPerMinute, "login")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}
	api, err := createLimiter(cfg.RateLimitAPIPerMinute, "api")
	if err != nil {
		return rateLimitMiddlewares{}, err
	}

	return rateLimitMiddlewares{login: login, api: api}, nil
}
