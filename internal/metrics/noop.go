package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Authentication - noop implementations
func (n *NoopMetrics) RecordAuthAttempt(method string, success bool, duration time.Duration) {}
func (n *NoopMetrics) RecordLogin(authSource string, success bool)                           {}
func (n *NoopMetrics) RecordDirectoryAuthentication(result string, duration time.Duration)   {}
func (n *NoopMetrics) RecordDirectoryGroups(count int)                                       {}
func (n *NoopMetrics) RecordExternalAPICall(provider string, duration time.Duration)         {}

// Directory configuration - noop implementations
func (n *NoopMetrics) RecordConfigUpdate(success bool) {}
func (n *NoopMetrics) RecordConfigTest(result string)  {}

// Security - noop implementations
func (n *NoopMetrics) RecordRateLimitHit(endpoint string) {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetUsersCount(authSource string, count int) {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
