package bootstrap

import (
	"context"
	"net/http"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/cache"
	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Logger *zap.Logger

	// Core infrastructure
	DB                   *store.Store
	Recorder             core.Recorder
	MetricsCache         cache.Cache[metrics.UserCounts]
	MetricsCacheCloser   func() error
	RateLimitRedisClient *redis.Client

	// Services
	AuditService  *services.AuditService
	UserService   *services.UserService
	ConfigService *services.ConfigService
	LDAPProvider  *auth.LDAPAuthProvider

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application. It blocks until a
// shutdown signal arrives and the graceful jobs have drained.
func Run(cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	// Phase 1: Validate configuration
	if err := validateAllConfiguration(cfg); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, cache, and Redis
func (app *Application) initializeInfrastructure() error {
	var err error

	// Database
	app.DB, err = initializeDatabase(app.Config, app.Logger)
	if err != nil {
		return err
	}

	// Metrics
	app.Recorder = initializeMetrics(app.Config, app.Logger)
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(
		context.Background(),
		app.Config,
		app.Logger,
	)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(app.Config, app.Logger)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() error {
	// Audit service (required by other services)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.AuditEnabled,
		app.Config.AuditBufferSize,
	)

	var err error
	app.UserService, app.ConfigService, app.LDAPProvider, err = initializeServices(
		app.Config,
		app.DB,
		app.AuditService,
		app.Recorder,
		app.Logger,
	)
	return err
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(
		app.UserService,
		app.ConfigService,
		app.AuditService,
	)

	var err error
	app.Router, err = setupRouter(
		app.Config,
		app.DB,
		app.HandlerSet,
		app.Recorder,
		app.RateLimitRedisClient,
		app.Logger,
	)
	if err != nil {
		return err
	}

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server, app.Logger)
	addServerShutdownJob(m, app.Server, app.Logger)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient, app.Logger)
	addAuditServiceShutdownJob(m, app.AuditService, app.Logger)
	addAuditLogCleanupJob(m, app.Config, app.AuditService, app.Logger)
	addMetricsGaugeUpdateJob(
		m,
		app.Config,
		app.DB,
		app.Recorder,
		app.MetricsCache,
		app.Logger,
	)
	addCacheCleanupJob(m, app.MetricsCacheCloser, app.Logger)

	// Wait for graceful shutdown
	<-m.Done()
}
