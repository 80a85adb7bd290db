package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "json",
		DatabaseDriver:          "sqlite",
		DatabaseDSN:             "ldap-auth.db",
		RateLimitStore:          RateLimitStoreMemory,
		RateLimitEnabled:        true,
		RateLimitLoginPerMinute: 10,
		RateLimitAPIPerMinute:   120,
		MetricsCacheType:        MetricsCacheMemory,
		AuditBufferSize:         1000,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid memory store",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "valid redis store",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
				c.RedisAddr = "localhost:6379"
			},
			expectError: false,
		},
		{
			name: "invalid store - typo",
			mutate: func(c *Config) {
				c.RateLimitStore = "reddis"
			},
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name: "invalid store - empty string",
			mutate: func(c *Config) {
				c.RateLimitStore = ""
			},
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: ""`,
		},
		{
			name: "invalid store - uppercase",
			mutate: func(c *Config) {
				c.RateLimitStore = "MEMORY"
			},
			expectError: true,
			errorMsg:    `invalid RATE_LIMIT_STORE value: "MEMORY"`,
		},
		{
			name: "redis store without redis address",
			mutate: func(c *Config) {
				c.RateLimitStore = RateLimitStoreRedis
				c.RedisAddr = ""
			},
			expectError: true,
			errorMsg:    `RATE_LIMIT_STORE="redis" requires REDIS_ADDR`,
		},
		{
			name: "invalid database driver",
			mutate: func(c *Config) {
				c.DatabaseDriver = "mysql"
			},
			expectError: true,
			errorMsg:    `invalid DATABASE_DRIVER value: "mysql"`,
		},
		{
			name: "postgres without DSN",
			mutate: func(c *Config) {
				c.DatabaseDriver = "postgres"
				c.DatabaseDSN = ""
			},
			expectError: true,
			errorMsg:    `DATABASE_DRIVER="postgres" requires DATABASE_DSN`,
		},
		{
			name: "postgres with DSN",
			mutate: func(c *Config) {
				c.DatabaseDriver = "postgres"
				c.DatabaseDSN = "host=localhost user=app dbname=app"
			},
			expectError: false,
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.LogFormat = "logfmt"
			},
			expectError: true,
			errorMsg:    `invalid LOG_FORMAT value: "logfmt"`,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.LogLevel = "verbose"
			},
			expectError: true,
			errorMsg:    `invalid LOG_LEVEL value: "verbose"`,
		},
		{
			name: "zero login rate rejected while rate limiting enabled",
			mutate: func(c *Config) {
				c.RateLimitLoginPerMinute = 0
			},
			expectError: true,
			errorMsg:    "RATE_LIMIT_LOGIN_PER_MINUTE must be positive",
		},
		{
			name: "negative api rate rejected while rate limiting enabled",
			mutate: func(c *Config) {
				c.RateLimitAPIPerMinute = -5
			},
			expectError: true,
			errorMsg:    "RATE_LIMIT_API_PER_MINUTE must be positive",
		},
		{
			name: "rates ignored when rate limiting disabled",
			mutate: func(c *Config) {
				c.RateLimitEnabled = false
				c.RateLimitLoginPerMinute = 0
				c.RateLimitAPIPerMinute = 0
			},
			expectError: false,
		},
		{
			name: "negative audit retention rejected",
			mutate: func(c *Config) {
				c.AuditRetention = -1 * time.Hour
			},
			expectError: true,
			errorMsg:    "AUDIT_RETENTION must not be negative",
		},
		{
			name: "zero audit retention keeps entries forever",
			mutate: func(c *Config) {
				c.AuditRetention = 0
			},
			expectError: false,
		},
		{
			name: "invalid metrics cache type",
			mutate: func(c *Config) {
				c.MetricsCacheType = "memcached"
			},
			expectError: true,
			errorMsg:    `invalid METRICS_CACHE value: "memcached"`,
		},
		{
			name: "redis metrics cache without redis address",
			mutate: func(c *Config) {
				c.MetricsCacheType = MetricsCacheRedisAside
				c.RedisAddr = ""
			},
			expectError: true,
			errorMsg:    `METRICS_CACHE="redis-aside" requires REDIS_ADDR`,
		},
		{
			name: "redis metrics cache with redis address",
			mutate: func(c *Config) {
				c.MetricsCacheType = MetricsCacheRedis
				c.RedisAddr = "localhost:6379"
			},
			expectError: false,
		},
		{
			name: "negative gauge interval rejected",
			mutate: func(c *Config) {
				c.MetricsGaugeInterval = -time.Second
			},
			expectError: true,
			errorMsg:    "METRICS_GAUGE_INTERVAL must not be negative",
		},
		{
			name: "zero audit buffer rejected while audit enabled",
			mutate: func(c *Config) {
				c.AuditEnabled = true
				c.AuditBufferSize = 0
			},
			expectError: true,
			errorMsg:    "AUDIT_BUFFER_SIZE must be positive",
		},
		{
			name: "audit buffer ignored when audit disabled",
			mutate: func(c *Config) {
				c.AuditEnabled = false
				c.AuditBufferSize = 0
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAuthModeConstants(t *testing.T) {
	assert.Equal(t, "local", AuthModeLocal)
	assert.Equal(t, "ldap", AuthModeLDAP)
	assert.Equal(t, "http_api", AuthModeHTTPAPI)
}

func TestRateLimitStoreConstants(t *testing.T) {
	// Ensure constants are defined correctly
	assert.Equal(t, "memory", RateLimitStoreMemory)
	assert.Equal(t, "redis", RateLimitStoreRedis)
}

func TestMetricsCacheConstants(t *testing.T) {
	assert.Equal(t, "memory", MetricsCacheMemory)
	assert.Equal(t, "redis", MetricsCacheRedis)
	assert.Equal(t, "redis-aside", MetricsCacheRedisAside)
}

func TestLoadDefaults(t *testing.T) {
	// Empty values make Load fall back to its defaults regardless of the
	// surrounding environment.
	for _, key := range []string{
		"SERVER_ADDR", "AUTH_MODE", "DATABASE_DRIVER", "DATABASE_DSN",
		"DATABASE_PATH", "LOG_LEVEL", "LOG_FORMAT", "RATE_LIMIT_STORE",
		"RATE_LIMIT_LOGIN_PER_MINUTE", "RATE_LIMIT_API_PER_MINUTE",
		"AUDIT_ENABLED", "AUDIT_BUFFER_SIZE", "METRICS_ENABLED",
		"METRICS_GAUGE_INTERVAL", "METRICS_CACHE", "TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, AuthModeLDAP, cfg.AuthMode)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "ldap-auth.db", cfg.DatabaseDSN)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, RateLimitStoreMemory, cfg.RateLimitStore)
	assert.Equal(t, 10, cfg.RateLimitLoginPerMinute)
	assert.Equal(t, 120, cfg.RateLimitAPIPerMinute)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, 1000, cfg.AuditBufferSize)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, time.Minute, cfg.MetricsGaugeInterval)
	assert.Equal(t, MetricsCacheMemory, cfg.MetricsCacheType)
	assert.Nil(t, cfg.TrustedProxies)

	require.NoError(t, cfg.Validate())
}

func TestLoadDatabaseDSN(t *testing.T) {
	tests := []struct {
		name           string
		driver         string
		dsn            string
		legacyPath     string
		expectedDriver string
		expectedDSN    string
	}{
		{
			name:           "sqlite default path",
			driver:         "",
			expectedDriver: "sqlite",
			expectedDSN:    "ldap-auth.db",
		},
		{
			name:           "sqlite explicit DSN",
			driver:         "sqlite",
			dsn:            "/var/lib/app/auth.db",
			expectedDriver: "sqlite",
			expectedDSN:    "/var/lib/app/auth.db",
		},
		{
			name:           "sqlite legacy DATABASE_PATH",
			driver:         "sqlite",
			legacyPath:     "legacy.db",
			expectedDriver: "sqlite",
			expectedDSN:    "legacy.db",
		},
		{
			name:           "postgres has no default DSN",
			driver:         "postgres",
			expectedDriver: "postgres",
			expectedDSN:    "",
		},
		{
			name:           "postgres explicit DSN",
			driver:         "postgres",
			dsn:            "host=db user=app dbname=auth",
			expectedDriver: "postgres",
			expectedDSN:    "host=db user=app dbname=auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_DRIVER", tt.driver)
			t.Setenv("DATABASE_DSN", tt.dsn)
			t.Setenv("DATABASE_PATH", tt.legacyPath)

			cfg := Load()

			assert.Equal(t, tt.expectedDriver, cfg.DatabaseDriver)
			assert.Equal(t, tt.expectedDSN, cfg.DatabaseDSN)
		})
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2 ,,192.168.1.0/24")

	cfg := Load()

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "192.168.1.0/24"}, cfg.TrustedProxies)
}

func TestLoadDirectorySeedValues(t *testing.T) {
	t.Setenv("LDAP_HOST_URL", "ldaps://ldap.example.org:636")
	t.Setenv("LDAP_CONNECTION_DN", "cn=service,dc=example,dc=org")
	t.Setenv("LDAP_CONNECTION_PASSWORD", "secret")
	t.Setenv("LDAP_BASE_DN", "dc=example,dc=org")
	t.Setenv("LDAP_ENABLE_START_TLS", "true")

	cfg := Load()

	assert.Equal(t, "ldaps://ldap.example.org:636", cfg.LDAPHostURL)
	assert.Equal(t, "cn=service,dc=example,dc=org", cfg.LDAPConnectionDN)
	assert.Equal(t, "secret", cfg.LDAPConnectionPassword)
	assert.Equal(t, "dc=example,dc=org", cfg.LDAPBaseDN)
	assert.True(t, cfg.LDAPEnableStartTLS)
}
