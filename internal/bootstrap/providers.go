package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/ldap"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
)

// initializeDirectoryProvider creates the LDAP auth provider when AUTH_MODE=ldap.
// The engine starts from the stored directory configuration; later updates
// through the configuration API swap the engine without a restart.
func initializeDirectoryProvider(
	cfg *config.Config,
	db *store.Store,
	logger *zap.Logger,
) (*auth.LDAPAuthProvider, error) {
	switch cfg.AuthMode {
	case config.AuthModeLDAP:
		stored, err := db.GetLDAPConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load directory configuration: %w", err)
		}
		engine := ldap.NewEngine(services.EngineConfig(stored), nil, nil, logger)
		logger.Info("directory authentication enabled",
			zap.String("host", stored.HostURL),
			zap.String("base_dn", stored.BaseDN))
		return auth.NewLDAPAuthProvider(engine), nil
	default:
		return nil, nil //nolint:nilnil // directory provider not used in this auth mode
	}
}

// initializeHTTPAPIAuthProvider creates HTTP API auth provider when configured
func initializeHTTPAPIAuthProvider(
	cfg *config.Config,
	logger *zap.Logger,
) (*auth.HTTPAPIAuthProvider, error) {
	switch cfg.AuthMode {
	case config.AuthModeHTTPAPI:
		provider, err := auth.NewHTTPAPIAuthProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP API auth provider: %w", err)
		}
		logger.Info("HTTP API authentication enabled", zap.String("url", cfg.HTTPAPIURL))
		return provider, nil
	default:
		return nil, nil //nolint:nilnil // http_api provider not used in this auth mode
	}
}
