package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/handlers"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
	"github.com/robert0714/scm-ldap-plugin/internal/middleware"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
	"github.com/robert0714/scm-ldap-plugin/internal/util"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	recorder core.Recorder,
	rateLimitRedisClient *redis.Client,
	logger *zap.Logger,
) (*gin.Engine, error) {
	setupGinMode(cfg, logger)
	handlers.RegisterValidators()

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	// Metrics middleware first so it times the full chain
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	setupMetricsEndpoint(r, cfg, logger)
	setupSwaggerEndpoint(r, logger)

	rateLimiters, err := setupRateLimiting(cfg, rateLimitRedisClient, recorder, logger)
	if err != nil {
		return nil, err
	}

	setupAPIRoutes(r, cfg, h, rateLimiters)
	logServerStartup(cfg, logger)

	return r, nil
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, logger *zap.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		logger.Info("prometheus metrics disabled")
	case cfg.MetricsToken != "":
		logger.Info("prometheus metrics enabled at /metrics with bearer token authentication")
		r.GET(
			"/metrics",
			middleware.AdminAuthMiddleware(cfg.MetricsToken, "metrics"),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		logger.Info("prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupSwaggerEndpoint serves the Swagger UI in debug mode only
func setupSwaggerEndpoint(r *gin.Engine, logger *zap.Logger) {
	if gin.Mode() != gin.DebugMode {
		return
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logger.Info("swagger UI enabled", zap.String("path", "/swagger/index.html"))
}

// setupAPIRoutes configures all application routes
func setupAPIRoutes(
	r *gin.Engine,
	cfg *config.Config,
	h handlerSet,
	rateLimiters rateLimitMiddlewares,
) {
	v1 := r.Group("/api/v1")

	// Login is the only public API endpoint
	v1.POST("/auth/login", rateLimiters.login, h.auth.Login)

	// Configuration and audit endpoints require the admin token
	admin := v1.Group("")
	admin.Use(middleware.AdminAuthMiddleware(cfg.AdminToken, "api"), rateLimiters.api)
	{
		admin.GET("/config/ldap", h.config.GetConfig)
		admin.PUT("/config/ldap", h.config.UpdateConfig)
		admin.POST("/config/ldap/test", h.config.TestConfig)

		admin.GET("/audit", h.audit.ListAuditLogs)
		admin.GET("/audit/stats", h.audit.GetAuditLogStats)
		admin.GET("/audit/export", h.audit.ExportAuditLogs)
	}
}

// createHealthCheckHandler creates health check endpoint handler
// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Check server and database health status
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	object{status=string,database=string}	"Service is healthy"
//	@Failure		503	{object}	object{status=string,database=string}	"Service is unhealthy"
//	@Router			/health [get]
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode from the logging configuration. Debug level
// selects Gin's debug mode, everything else runs in release mode.
func setupGinMode(cfg *config.Config, logger *zap.Logger) {
	mode := ginModeMap[cfg.LogLevel == "debug"]
	gin.SetMode(mode)
	logger.Info("gin mode", zap.String("mode", mode))
}

var ginModeMap = map[bool]string{
	true:  gin.DebugMode,
	false: gin.ReleaseMode,
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config, logger *zap.Logger) {
	logger.Info("starting authentication server",
		zap.String("addr", cfg.ServerAddr),
		zap.String("base_url", cfg.BaseURL),
		zap.String("auth_mode", cfg.AuthMode))
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, configuration and audit endpoints are unprotected")
	}
}
