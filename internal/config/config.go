package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Authentication mode constants
const (
	AuthModeLocal   = "local"
	AuthModeLDAP    = "ldap"
	AuthModeHTTPAPI = "http_api"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Metrics cache backend constants
const (
	MetricsCacheMemory     = "memory"
	MetricsCacheRedis      = "redis"
	MetricsCacheRedisAside = "redis-aside"
)

type Config struct {
	// Server settings
	ServerAddr     string
	BaseURL        string
	TrustedProxies []string // Proxy addresses allowed to set client IP headers

	// Logging
	LogLevel  string // "debug", "info", "warn" or "error"
	LogFormat string // "json" or "console"

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Authentication
	AuthMode             string // "local", "ldap" or "http_api"
	DefaultAdminPassword string // Initial admin password; random when empty

	// Directory seed values, used once to fill the stored configuration
	// when the database has none. Later changes go through the
	// configuration API.
	LDAPHostURL            string
	LDAPConnectionDN       string
	LDAPConnectionPassword string
	LDAPBaseDN             string
	LDAPEnableStartTLS     bool

	// HTTP API Authentication
	HTTPAPIURL                string
	HTTPAPITimeout            time.Duration
	HTTPAPIInsecureSkipVerify bool
	HTTPAPIAuthMode           string // Authentication mode: "none", "simple", or "hmac"
	HTTPAPIAuthSecret         string // Shared secret for authentication
	HTTPAPIAuthHeader         string // Custom header name for simple mode (default: "X-API-Secret")
	HTTPAPIMaxRetries         int    // Maximum retry attempts (default: 3)
	HTTPAPIRetryDelay         time.Duration
	HTTPAPIMaxRetryDelay      time.Duration

	// Admin API
	AdminToken string // Bearer token protecting configuration and audit endpoints

	// Metrics
	MetricsEnabled       bool
	MetricsToken         string        // Optional bearer token for the metrics endpoint
	MetricsGaugeInterval time.Duration // Gauge refresh period; 0 disables the background job
	MetricsCacheType     string        // "memory", "redis" or "redis-aside"

	// Rate limiting
	RateLimitEnabled        bool
	RateLimitStore          string // "memory" or "redis"
	RateLimitLoginPerMinute int
	RateLimitAPIPerMinute   int
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int

	// Audit log
	AuditEnabled    bool
	AuditRetention  time.Duration // 0 keeps entries forever
	AuditBufferSize int           // Async write queue capacity
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "ldap-auth.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		TrustedProxies: getEnvSlice("TRUSTED_PROXIES", nil),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		// Authentication
		AuthMode:             getEnv("AUTH_MODE", AuthModeLDAP),
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),

		// Directory seed values
		LDAPHostURL:            getEnv("LDAP_HOST_URL", ""),
		LDAPConnectionDN:       getEnv("LDAP_CONNECTION_DN", ""),
		LDAPConnectionPassword: getEnv("LDAP_CONNECTION_PASSWORD", ""),
		LDAPBaseDN:             getEnv("LDAP_BASE_DN", ""),
		LDAPEnableStartTLS:     getEnvBool("LDAP_ENABLE_START_TLS", false),

		// HTTP API Authentication
		HTTPAPIURL:                getEnv("HTTP_API_URL", ""),
		HTTPAPITimeout:            getEnvDuration("HTTP_API_TIMEOUT", 10*time.Second),
		HTTPAPIInsecureSkipVerify: getEnvBool("HTTP_API_INSECURE_SKIP_VERIFY", false),
		HTTPAPIAuthMode:           getEnv("HTTP_API_AUTH_MODE", "none"),
		HTTPAPIAuthSecret:         getEnv("HTTP_API_AUTH_SECRET", ""),
		HTTPAPIAuthHeader:         getEnv("HTTP_API_AUTH_HEADER", "X-API-Secret"),
		HTTPAPIMaxRetries:         getEnvInt("HTTP_API_MAX_RETRIES", 3),
		HTTPAPIRetryDelay:         getEnvDuration("HTTP_API_RETRY_DELAY", 1*time.Second),
		HTTPAPIMaxRetryDelay:      getEnvDuration("HTTP_API_MAX_RETRY_DELAY", 10*time.Second),

		// Admin API
		AdminToken: getEnv("ADMIN_TOKEN", ""),

		// Metrics
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", false),
		MetricsToken:         getEnv("METRICS_TOKEN", ""),
		MetricsGaugeInterval: getEnvDuration("METRICS_GAUGE_INTERVAL", time.Minute),
		MetricsCacheType:     getEnv("METRICS_CACHE", MetricsCacheMemory),

		// Rate limiting
		RateLimitEnabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitStore:          getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitLoginPerMinute: getEnvInt("RATE_LIMIT_LOGIN_PER_MINUTE", 10),
		RateLimitAPIPerMinute:   getEnvInt("RATE_LIMIT_API_PER_MINUTE", 120),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),

		// Audit log
		AuditEnabled:    getEnvBool("AUDIT_ENABLED", true),
		AuditRetention:  getEnvDuration("AUDIT_RETENTION", 0),
		AuditBufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 1000),
	}
}

// Validate checks settings that have no safe fallback. Mode-specific
// requirements (e.g. AUTH_MODE=http_api needs HTTP_API_URL) are checked
// during bootstrap.
func (c *Config) Validate() error {
	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis)
	}
	if c.RateLimitStore == RateLimitStoreRedis && c.RedisAddr == "" {
		return errors.New(`RATE_LIMIT_STORE="redis" requires REDIS_ADDR`)
	}

	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER value: %q (must be \"sqlite\" or \"postgres\")",
			c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return errors.New(`DATABASE_DRIVER="postgres" requires DATABASE_DSN`)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT value: %q (must be \"json\" or \"console\")",
			c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL value: %q (must be \"debug\", \"info\", \"warn\" or \"error\")",
			c.LogLevel)
	}

	if c.RateLimitEnabled {
		if c.RateLimitLoginPerMinute <= 0 {
			return errors.New("RATE_LIMIT_LOGIN_PER_MINUTE must be positive")
		}
		if c.RateLimitAPIPerMinute <= 0 {
			return errors.New("RATE_LIMIT_API_PER_MINUTE must be positive")
		}
	}

	switch c.MetricsCacheType {
	case MetricsCacheMemory, MetricsCacheRedis, MetricsCacheRedisAside:
	default:
		return fmt.Errorf("invalid METRICS_CACHE value: %q (must be %q, %q or %q)",
			c.MetricsCacheType, MetricsCacheMemory, MetricsCacheRedis, MetricsCacheRedisAside)
	}
	if c.MetricsCacheType != MetricsCacheMemory && c.RedisAddr == "" {
		return fmt.Errorf("METRICS_CACHE=%q requires REDIS_ADDR", c.MetricsCacheType)
	}
	if c.MetricsGaugeInterval < 0 {
		return errors.New("METRICS_GAUGE_INTERVAL must not be negative")
	}

	if c.AuditRetention < 0 {
		return errors.New("AUDIT_RETENTION must not be negative")
	}
	if c.AuditEnabled && c.AuditBufferSize <= 0 {
		return errors.New("AUDIT_BUFFER_SIZE must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		// Split by comma and trim spaces
		parts := []string{}
		for _, part := range splitAndTrim(value, ",") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
