package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authentication
	RecordAuthAttempt(method string, success bool, duration time.Duration)
	RecordLogin(authSource string, success bool)
	RecordDirectoryAuthentication(result string, duration time.Duration)
	RecordDirectoryGroups(count int)
	RecordExternalAPICall(provider string, duration time.Duration)

	// Directory configuration
	RecordConfigUpdate(success bool)
	RecordConfigTest(result string)

	// Security
	RecordRateLimitHit(endpoint string)

	// Gauge Setters (for periodic updates)
	SetUsersCount(authSource string, count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed for periodic gauge updates.
type MetricsStore interface {
	CountUsersByAuthSource() (map[string]int64, error)
}
