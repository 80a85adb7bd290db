package bootstrap

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/cache"
	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
)

const (
	serverShutdownTimeout = 5 * time.Second
	auditShutdownTimeout  = 10 * time.Second
	auditCleanupInterval  = 24 * time.Hour
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, logger *zap.Logger) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("failed to start server", zap.Error(err))
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server, logger *zap.Logger) {
	m.AddShutdownJob(func() error {
		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
			return err
		}

		logger.Info("server exited")
		return nil
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client, logger *zap.Logger) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := redisClient.Close(); err != nil {
			logger.Error("error closing redis client", zap.Error(err))
			return err
		}
		logger.Info("redis connection closed")
		return nil
	})
}

// addAuditServiceShutdownJob drains the audit write queue on shutdown
func addAuditServiceShutdownJob(
	m *graceful.Manager,
	auditService *services.AuditService,
	logger *zap.Logger,
) {
	m.AddShutdownJob(func() error {
		logger.Info("shutting down audit service")
		ctx, cancel := context.WithTimeout(context.Background(), auditShutdownTimeout)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			logger.Error("error shutting down audit service", zap.Error(err))
			return err
		}
		return nil
	})
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
	logger *zap.Logger,
) {
	if !cfg.AuditEnabled || cfg.AuditRetention <= 0 {
		return
	}

	cleanup := func() {
		if deleted, err := auditService.CleanupOldLogs(cfg.AuditRetention); err != nil {
			logger.Error("failed to clean up old audit logs", zap.Error(err))
		} else if deleted > 0 {
			logger.Info("cleaned up old audit logs", zap.Int64("deleted", deleted))
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(auditCleanupInterval)
		defer ticker.Stop()

		// Run cleanup immediately on startup
		cleanup()

		for {
			select {
			case <-ticker.C:
				cleanup()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder core.Recorder,
	metricsCache cache.Cache[metrics.UserCounts],
	logger *zap.Logger,
) {
	if metricsCache == nil {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeInterval)
		defer ticker.Stop()

		cacheWrapper := metrics.NewCacheWrapper(db, metricsCache)
		errLog := newErrorLogger(logger)

		// Update immediately on startup
		updateGaugeMetrics(ctx, cacheWrapper, recorder, cfg.MetricsGaugeInterval, errLog)

		for {
			select {
			case <-ticker.C:
				updateGaugeMetrics(ctx, cacheWrapper, recorder, cfg.MetricsGaugeInterval, errLog)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addCacheCleanupJob adds cache cleanup on shutdown
func addCacheCleanupJob(m *graceful.Manager, metricsCacheCloser func() error, logger *zap.Logger) {
	if metricsCacheCloser == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := metricsCacheCloser(); err != nil {
			logger.Error("error closing metrics cache", zap.Error(err))
		} else {
			logger.Info("metrics cache closed")
		}
		return nil
	})
}

// errorLogger rate-limits repeated gauge query failures so a broken
// database does not flood the log every tick
type errorLogger struct {
	mu              sync.Mutex
	logger          *zap.Logger
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger(logger *zap.Logger) *errorLogger {
	return &errorLogger{
		logger:          logger,
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

// logIfNeeded logs an error only if rate limit allows
func (e *errorLogger) logIfNeeded(operation string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	lastTime, exists := e.lastErrorTimes[operation]

	if !exists || now.Sub(lastTime) >= e.rateLimitWindow {
		e.logger.Error("gauge query failed",
			zap.String("operation", operation),
			zap.Error(err),
			zap.Duration("suppressing_for", e.rateLimitWindow))
		e.lastErrorTimes[operation] = now
	}
}

// updateGaugeMetrics refreshes the users gauge from a cache-backed store.
// The cache TTL matches the update interval, so in multi-instance
// deployments one instance queries the database per window and the
// others serve from the shared cache.
func updateGaugeMetrics(
	ctx context.Context,
	cacheWrapper *metrics.CacheWrapper,
	recorder core.Recorder,
	cacheTTL time.Duration,
	errLog *errorLogger,
) {
	counts, err := cacheWrapper.GetUsersBySource(ctx, cacheTTL)
	if err != nil {
		recorder.RecordDatabaseQueryError("count_users_by_auth_source")
		errLog.logIfNeeded("count_users_by_auth_source", err)
		return
	}
	for source, count := range counts {
		recorder.SetUsersCount(source, int(count))
	}
}
