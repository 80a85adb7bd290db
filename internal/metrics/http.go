package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics
func HTTPMetricsMiddleware(m Recorder) gin.HandlerFunc {
	// If NoopMetrics, return a lightweight middleware that does nothing
	if _, ok := m.(*NoopMetrics); ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// Type assert to concrete Metrics for Prometheus access
	metrics, ok := m.(*Metrics)
	if !ok {
		// Fallback if unknown implementation
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		// Increment in-flight counter
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		// Process request
		c.Next()

		// Record metrics after request completes
		duration := time.Since(start).Seconds()
		method := c.Request.Method
		path := normalizePath(c.FullPath()) // Use route pattern, not actual path
		status := strconv.Itoa(c.Writer.Status())

		// Record request count
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()

		// Record request duration
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// normalizePath converts the actual request path to route pattern
// Returns the route pattern (e.g., "/users/:id") or the path itself if no match
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

// RecordAuthAttempt records an authentication attempt against a provider
func (m *Metrics) RecordAuthAttempt(method string, success bool, duration time.Duration) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthAttemptsTotal.WithLabelValues(method, result).Inc()
	m.AuthLoginDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordLogin records a login attempt
func (m *Metrics) RecordLogin(authSource string, success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(authSource, result).Inc()
}

// RecordDirectoryAuthentication records the outcome of a directory round trip
func (m *Metrics) RecordDirectoryAuthentication(result string, duration time.Duration) {
	// result: success, failed, not_found, error
	m.DirectoryAuthenticationsTotal.WithLabelValues(result).Inc()
	m.DirectoryAuthenticationDuration.Observe(duration.Seconds())
}

// RecordDirectoryGroups records the group count of a successful directory login
func (m *Metrics) RecordDirectoryGroups(count int) {
	m.DirectoryGroupsResolved.Observe(float64(count))
}

// RecordExternalAPICall records external API call duration
func (m *Metrics) RecordExternalAPICall(provider string, duration time.Duration) {
	m.AuthExternalAPIDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordConfigUpdate records a directory configuration update
func (m *Metrics) RecordConfigUpdate(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.ConfigUpdatesTotal.WithLabelValues(result).Inc()
}

// RecordConfigTest records a directory connection test outcome
func (m *Metrics) RecordConfigTest(result string) {
	// result: success, failed, not_found, error
	m.ConfigTestsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimitHit records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHitsTotal.WithLabelValues(endpoint).Inc()
}

// SetUsersCount sets the current count of users per auth source (for periodic updates)
func (m *Metrics) SetUsersCount(authSource string, count int) {
	m.UsersTotal.WithLabelValues(authSource).Set(float64(count))
}

// RecordDatabaseQueryError records a database query error
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}

// String formats the metrics for logging
func (m *Metrics) String() string {
	return "Metrics{Auth: active, Directory: active, HTTP: enabled}"
}
