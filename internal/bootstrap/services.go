package bootstrap

import (
	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
)

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
	auditService *services.AuditService,
	recorder core.Recorder,
	logger *zap.Logger,
) (*services.UserService, *services.ConfigService, *auth.LDAPAuthProvider, error) {
	// Authentication providers. The local provider always exists as the
	// fallback for locally created accounts; the directory and HTTP API
	// providers depend on AUTH_MODE.
	localProvider := auth.NewLocalAuthProvider(db)

	ldapProvider, err := initializeDirectoryProvider(cfg, db, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	httpAPIProvider, err := initializeHTTPAPIAuthProvider(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	// The user service takes providers as interfaces. Assign through a
	// nil check so a disabled provider stays a nil interface instead of
	// a non-nil interface wrapping a nil pointer.
	var directoryAuth core.AuthProvider
	if ldapProvider != nil {
		directoryAuth = ldapProvider
	}
	var httpAPIAuth core.AuthProvider
	if httpAPIProvider != nil {
		httpAPIAuth = httpAPIProvider
	}

	userService := services.NewUserService(
		db,
		localProvider,
		directoryAuth,
		httpAPIAuth,
		cfg.AuthMode,
		auditService,
		recorder,
		logger,
	)
	configService := services.NewConfigService(db, ldapProvider, auditService, recorder, logger)

	return userService, configService, ldapProvider, nil
}
