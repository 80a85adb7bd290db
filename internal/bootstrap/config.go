package bootstrap

import (
	"errors"
	"fmt"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
)

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateAuthConfig(cfg); err != nil {
		return fmt.Errorf("invalid authentication configuration: %w", err)
	}
	return nil
}

// validateAuthConfig checks that required config is present for selected auth mode
func validateAuthConfig(cfg *config.Config) error {
	switch cfg.AuthMode {
	case config.AuthModeHTTPAPI:
		if cfg.HTTPAPIURL == "" {
			return errors.New("HTTP_API_URL is required when AUTH_MODE=http_api")
		}
		return validateHTTPAPIAuthConfig(cfg)
	case config.AuthModeLocal, config.AuthModeLDAP:
		// No additional validation needed; directory settings live in the
		// database and are validated when stored
	default:
		return fmt.Errorf("invalid AUTH_MODE: %s (must be: local, ldap, http_api)", cfg.AuthMode)
	}
	return nil
}

// validateHTTPAPIAuthConfig checks the client authentication settings for
// the external authentication API
func validateHTTPAPIAuthConfig(cfg *config.Config) error {
	switch cfg.HTTPAPIAuthMode {
	case "none":
		// No credentials needed
	case "simple", "hmac":
		if cfg.HTTPAPIAuthSecret == "" {
			return fmt.Errorf(
				"HTTP_API_AUTH_SECRET is required when HTTP_API_AUTH_MODE=%s",
				cfg.HTTPAPIAuthMode,
			)
		}
	default:
		return fmt.Errorf(
			"invalid HTTP_API_AUTH_MODE: %s (must be: none, simple, hmac)",
			cfg.HTTPAPIAuthMode,
		)
	}
	return nil
}
