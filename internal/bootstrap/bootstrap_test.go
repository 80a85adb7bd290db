package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
)

func TestValidateAuthConfig(t *testing.T) {
	assert.NoError(t, validateAuthConfig(&config.Config{AuthMode: config.AuthModeLocal}))
	assert.NoError(t, validateAuthConfig(&config.Config{AuthMode: config.AuthModeLDAP}))
	assert.NoError(
		t,
		validateAuthConfig(
			&config.Config{
				AuthMode:        config.AuthModeHTTPAPI,
				HTTPAPIURL:      "http://auth.example.com",
				HTTPAPIAuthMode: "none",
			},
		),
	)

	err := validateAuthConfig(&config.Config{AuthMode: config.AuthModeHTTPAPI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_API_URL is required")

	err = validateAuthConfig(&config.Config{AuthMode: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AUTH_MODE")
}

func TestValidateHTTPAPIAuthConfig(t *testing.T) {
	assert.NoError(t, validateHTTPAPIAuthConfig(&config.Config{HTTPAPIAuthMode: "none"}))
	assert.NoError(
		t,
		validateHTTPAPIAuthConfig(
			&config.Config{HTTPAPIAuthMode: "hmac", HTTPAPIAuthSecret: "secret"},
		),
	)

	err := validateHTTPAPIAuthConfig(&config.Config{HTTPAPIAuthMode: "simple"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_API_AUTH_SECRET is required")

	err = validateHTTPAPIAuthConfig(&config.Config{HTTPAPIAuthMode: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP_API_AUTH_MODE")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(&config.Config{LogLevel: "info", LogFormat: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger, err = newLogger(&config.Config{LogLevel: "debug", LogFormat: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = newLogger(&config.Config{LogLevel: "loud", LogFormat: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid LOG_LEVEL")
}

func TestInitializeMetrics(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		cfg := &config.Config{MetricsEnabled: enabled}
		m := initializeMetrics(cfg, zap.NewNop())
		require.NotNil(t, m)
	}
}

func TestInitializeMetricsCacheDisabled(t *testing.T) {
	ctx := context.Background()

	// Metrics disabled - no cache
	c, closer, err := initializeMetricsCache(
		ctx,
		&config.Config{MetricsEnabled: false, MetricsGaugeInterval: time.Minute},
		zap.NewNop(),
	)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, closer)

	// Gauge job disabled - no cache
	c, closer, err = initializeMetricsCache(
		ctx,
		&config.Config{MetricsEnabled: true, MetricsGaugeInterval: 0},
		zap.NewNop(),
	)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, closer)
}

func TestInitializeMetricsCacheMemory(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		MetricsEnabled:       true,
		MetricsGaugeInterval: time.Minute,
		MetricsCacheType:     config.MetricsCacheMemory,
	}
	c, closer, err := initializeMetricsCache(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, closer)
	_ = closer()
}

func TestInitializeRateLimitRedisClient(t *testing.T) {
	// Disabled - no client
	client, err := initializeRateLimitRedisClient(
		&config.Config{RateLimitEnabled: false},
		zap.NewNop(),
	)
	require.NoError(t, err)
	assert.Nil(t, client)

	// Memory store - no client
	client, err = initializeRateLimitRedisClient(
		&config.Config{RateLimitEnabled: true, RateLimitStore: config.RateLimitStoreMemory},
		zap.NewNop(),
	)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestSetupRateLimitingDisabled(t *testing.T) {
	limiters, err := setupRateLimiting(
		&config.Config{RateLimitEnabled: false},
		nil,
		metrics.NewNoopMetrics(),
		zap.NewNop(),
	)
	require.NoError(t, err)
	require.NotNil(t, limiters.login)
	require.NotNil(t, limiters.api)

	// Verify noop middlewares don't panic
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	assert.NotPanics(t, func() { limiters.login(c) })
}

func TestSetupRateLimitingMemory(t *testing.T) {
	cfg := &config.Config{
		RateLimitEnabled:        true,
		RateLimitStore:          config.RateLimitStoreMemory,
		RateLimitLoginPerMinute: 5,
		RateLimitAPIPerMinute:   60,
	}
	limiters, err := setupRateLimiting(cfg, nil, metrics.NewNoopMetrics(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, limiters.login)
	require.NotNil(t, limiters.api)
}

func TestCreateHTTPServer(t *testing.T) {
	srv := createHTTPServer(
		&config.Config{ServerAddr: ":8080"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	require.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.Addr)
}

func TestGinModeMap(t *testing.T) {
	assert.Equal(t, gin.DebugMode, ginModeMap[true])
	assert.Equal(t, gin.ReleaseMode, ginModeMap[false])
}

func TestErrorLogger(t *testing.T) {
	el := newErrorLogger(zap.NewNop())
	require.NotNil(t, el)
	assert.NotNil(t, el.lastErrorTimes)

	// Repeated failures within the window must not panic and must
	// keep only the first timestamp
	assert.NotPanics(t, func() { el.logIfNeeded("test_op", assert.AnError) })
	first := el.lastErrorTimes["test_op"]
	assert.NotPanics(t, func() { el.logIfNeeded("test_op", assert.AnError) })
	assert.Equal(t, first, el.lastErrorTimes["test_op"])
}
