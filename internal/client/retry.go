package client

import (
	"fmt"
	"time"

	httpclient "github.com/appleboy/go-httpclient"
	retry "github.com/appleboy/go-httpretry"
)

// Options configures the outbound client for an external authentication API.
type Options struct {
	// AuthMode selects how requests are signed: "none", "simple" (static
	// secret header) or "hmac" (per-request signature).
	AuthMode   string
	AuthSecret string
	AuthHeader string

	Timeout            time.Duration
	InsecureSkipVerify bool

	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewRetryClient builds an HTTP client that signs requests according to
// the configured auth mode and retries transient failures with backoff.
// Used for service-to-service calls to external authentication APIs.
func NewRetryClient(opts Options) (*retry.Client, error) {
	c, err := httpclient.NewAuthClient(
		opts.AuthMode,
		opts.AuthSecret,
		httpclient.WithTimeout(opts.Timeout),
		httpclient.WithHeaderName(opts.AuthHeader),
		httpclient.WithInsecureSkipVerify(opts.InsecureSkipVerify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	retryClient, err := retry.NewRealtimeClient(
		retry.WithHTTPClient(c),
		retry.WithMaxRetries(opts.MaxRetries),
		retry.WithInitialRetryDelay(opts.RetryDelay),
		retry.WithMaxRetryDelay(opts.MaxRetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}

	return retryClient, nil
}
