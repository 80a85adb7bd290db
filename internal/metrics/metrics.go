package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robert0714/scm-ldap-plugin/internal/core"
)

// Recorder is a type alias for core.Recorder so callers inside this
// package and its tests can use the short name.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication Metrics
	AuthAttemptsTotal       *prometheus.CounterVec
	AuthLoginTotal          *prometheus.CounterVec
	AuthLoginDuration       *prometheus.HistogramVec
	AuthExternalAPIDuration *prometheus.HistogramVec

	// Directory Metrics
	DirectoryAuthenticationsTotal   *prometheus.CounterVec
	DirectoryAuthenticationDuration prometheus.Histogram
	DirectoryGroupsResolved         prometheus.Histogram

	// Directory Configuration Metrics
	ConfigUpdatesTotal *prometheus.CounterVec
	ConfigTestsTotal   *prometheus.CounterVec

	// Security Metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// User Metrics
	UsersTotal *prometheus.GaugeVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Authentication Metrics
		AuthAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of authentication attempts against a provider",
			},
			[]string{
				"method",
				"result",
			}, // method: local, ldap, http_api; result: success, failure
		),
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{
				"auth_source",
				"result",
			}, // auth_source: local, ldap, http_api; result: success, failure
		),
		AuthLoginDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_login_duration_seconds",
				Help:    "Time taken to complete login",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"}, // local, ldap, http_api
		),
		AuthExternalAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_external_api_duration_seconds",
				Help:    "Time taken for external API authentication calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"}, // http_api
		),

		// Directory Metrics
		DirectoryAuthenticationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldap_authentications_total",
				Help: "Total number of directory authentication attempts",
			},
			[]string{"result"}, // success, failed, not_found, error
		),
		DirectoryAuthenticationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ldap_authentication_duration_seconds",
				Help:    "Time taken for a full directory authentication round trip",
				Buckets: prometheus.DefBuckets,
			},
		),
		DirectoryGroupsResolved: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "ldap_groups_resolved",
				Help: "Number of groups resolved per successful directory login",
				Buckets: []float64{
					0,
					1,
					2,
					5,
					10,
					25,
					50,
					100,
				},
			},
		),

		// Directory Configuration Metrics
		ConfigUpdatesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldap_config_updates_total",
				Help: "Total number of directory configuration updates",
			},
			[]string{"result"}, // success, error
		),
		ConfigTestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ldap_config_tests_total",
				Help: "Total number of directory connection tests",
			},
			[]string{"result"}, // success, failed, not_found, error
		),

		// Security Metrics
		RateLimitHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"endpoint"}, // login, api
		),

		// User Metrics
		UsersTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "users_total",
				Help: "Current number of user accounts per authentication source",
			},
			[]string{"auth_source"}, // local, ldap, http_api
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		// Database Query Metrics
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"}, // get_user_by_username, count_users
		),
	}

	return m
}
