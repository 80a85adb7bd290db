package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
)

const (
	AuthModeLocal   = "local"
	AuthModeLDAP    = "ldap"
	AuthModeHTTPAPI = "http_api"
)

var (
	// ErrInvalidCredentials and ErrUserNotFound are the auth package
	// sentinels. Both match errors.Is(err, ErrInvalidCredentials), so
	// transport code cannot tell a missing user from a bad password.
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrUserNotFound       = auth.ErrUserNotFound

	ErrAuthProviderFailed = errors.New("authentication provider failed")
	ErrUserSyncFailed     = errors.New("failed to sync user from external provider")

	// ErrUsernameConflict surfaces the store conflict to transport code,
	// which tells the caller to involve an administrator instead of
	// retrying.
	ErrUsernameConflict = store.ErrUsernameConflict
)

type UserService struct {
	store           *store.Store
	localProvider   core.AuthProvider
	ldapProvider    core.AuthProvider
	httpAPIProvider core.AuthProvider
	authMode        string
	audit           *AuditService
	metrics         core.Recorder
	logger          *zap.Logger
}

func NewUserService(
	s *store.Store,
	localProvider core.AuthProvider,
	ldapProvider core.AuthProvider,
	httpAPIProvider core.AuthProvider,
	authMode string,
	audit *AuditService,
	metrics core.Recorder,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		store:           s,
		localProvider:   localProvider,
		ldapProvider:    ldapProvider,
		httpAPIProvider: httpAPIProvider,
		authMode:        authMode,
		audit:           audit,
		metrics:         metrics,
		logger:          logger,
	}
}

// Authenticate verifies the credentials and returns the local user record
// together with the groups the backing provider resolved for this login.
// Groups are per-login data, they are never persisted.
func (s *UserService) Authenticate(
	ctx context.Context,
	username, password string,
) (*models.User, []string, error) {
	// First, try to find existing user
	existingUser, err := s.store.GetUserByUsername(username)

	// If user exists, authenticate based on their auth_source
	if err == nil {
		return s.authenticateExistingUser(ctx, existingUser, password)
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		s.metrics.RecordDatabaseQueryError("get_user_by_username")
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// User doesn't exist - external modes may authenticate and create
	// the user on first login
	switch s.authMode {
	case AuthModeLDAP, AuthModeHTTPAPI:
		return s.authenticateAndCreateExternalUser(ctx, username, password)
	}

	// No existing user and not in external auth mode
	s.auditLoginFailure(ctx, username, "", s.authMode, ErrUserNotFound)
	s.metrics.RecordLogin(s.authMode, false)
	return nil, nil, ErrUserNotFound
}

// authenticateExistingUser authenticates based on user's auth_source
func (s *UserService) authenticateExistingUser(
	ctx context.Context,
	user *models.User,
	password string,
) (*models.User, []string, error) {
	var authResult *auth.AuthResult
	var err error

	// Route based on user's auth_source field
	source := user.AuthSource
	switch source {
	case AuthModeLDAP:
		if s.ldapProvider == nil {
			return nil, nil, fmt.Errorf("%w: directory provider not configured", ErrAuthProviderFailed)
		}
		authResult, err = s.runProvider(ctx, s.ldapProvider, user.Username, password)

	case AuthModeHTTPAPI:
		if s.httpAPIProvider == nil {
			return nil, nil, fmt.Errorf("%w: HTTP API provider not configured", ErrAuthProviderFailed)
		}
		authResult, err = s.runProvider(ctx, s.httpAPIProvider, user.Username, password)

	case AuthModeLocal:
		fallthrough
	default:
		if s.localProvider == nil {
			return nil, nil, fmt.Errorf("%w: local provider not configured", ErrAuthProviderFailed)
		}
		source = AuthModeLocal
		authResult, err = s.runProvider(ctx, s.localProvider, user.Username, password)
	}

	// Handle authentication failure
	if err != nil {
		s.logger.Warn("authentication failed",
			zap.String("username", user.Username),
			zap.String("auth_source", source),
			zap.Error(err))
		s.auditLoginFailure(ctx, user.Username, user.ID, source, err)
		s.metrics.RecordLogin(source, false)
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, nil, err
		}
		// Provider infrastructure errors must look like any other
		// rejected login to the caller
		return nil, nil, ErrInvalidCredentials
	}

	if !authResult.Success {
		s.auditLoginFailure(ctx, user.Username, user.ID, source, ErrInvalidCredentials)
		s.metrics.RecordLogin(source, false)
		return nil, nil, ErrInvalidCredentials
	}

	// Sync user data on successful external auth
	if user.IsExternal() {
		updatedUser, syncErr := s.syncExternalUser(authResult, source)
		if syncErr != nil {
			s.logger.Warn("external user sync failed",
				zap.String("username", user.Username),
				zap.Error(syncErr))
		} else {
			user = updatedUser
		}
	}

	s.auditLoginSuccess(ctx, user, source, authResult)
	s.metrics.RecordLogin(source, true)
	return user, authResult.Groups, nil
}

// authenticateAndCreateExternalUser tries external auth and creates new user
func (s *UserService) authenticateAndCreateExternalUser(
	ctx context.Context,
	username, password string,
) (*models.User, []string, error) {
	var provider core.AuthProvider
	switch s.authMode {
	case AuthModeLDAP:
		if s.ldapProvider == nil {
			return nil, nil, fmt.Errorf("%w: directory provider not configured", ErrAuthProviderFailed)
		}
		provider = s.ldapProvider
	case AuthModeHTTPAPI:
		if s.httpAPIProvider == nil {
			return nil, nil, fmt.Errorf("%w: HTTP API provider not configured", ErrAuthProviderFailed)
		}
		provider = s.httpAPIProvider
	}

	// Try external authentication
	authResult, err := s.runProvider(ctx, provider, username, password)
	if err != nil {
		s.logger.Warn("authentication failed",
			zap.String("username", username),
			zap.String("auth_source", s.authMode),
			zap.Error(err))
		s.auditLoginFailure(ctx, username, "", s.authMode, err)
		s.metrics.RecordLogin(s.authMode, false)
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, nil, err
		}
		return nil, nil, ErrInvalidCredentials
	}

	if !authResult.Success {
		s.auditLoginFailure(ctx, username, "", s.authMode, ErrInvalidCredentials)
		s.metrics.RecordLogin(s.authMode, false)
		return nil, nil, ErrInvalidCredentials
	}

	// Create new user in local database
	user, err := s.syncExternalUser(authResult, s.authMode)
	if err != nil {
		s.logger.Error("external user provisioning failed",
			zap.String("username", username),
			zap.Error(err))
		if errors.Is(err, ErrUsernameConflict) {
			return nil, nil, fmt.Errorf("%w: %w", ErrUserSyncFailed, ErrUsernameConflict)
		}
		return nil, nil, ErrUserSyncFailed
	}

	s.logger.Info("external user provisioned",
		zap.String("username", user.Username),
		zap.String("auth_source", s.authMode))
	s.auditLoginSuccess(ctx, user, s.authMode, authResult)
	s.metrics.RecordLogin(s.authMode, true)
	return user, authResult.Groups, nil
}

// runProvider calls the provider and feeds the timing metrics.
func (s *UserService) runProvider(
	ctx context.Context,
	provider core.AuthProvider,
	username, password string,
) (*auth.AuthResult, error) {
	start := time.Now()
	result, err := provider.Authenticate(ctx, username, password)
	duration := time.Since(start)

	s.metrics.RecordAuthAttempt(provider.Name(), err == nil, duration)
	switch provider.Name() {
	case AuthModeLDAP:
		s.metrics.RecordDirectoryAuthentication(directoryResult(err), duration)
		if err == nil {
			s.metrics.RecordDirectoryGroups(len(result.Groups))
		}
	case AuthModeHTTPAPI:
		s.metrics.RecordExternalAPICall(AuthModeHTTPAPI, duration)
	}
	return result, err
}

// directoryResult maps an authentication error to the metric label.
func directoryResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "failed"
	default:
		return "error"
	}
}

// syncExternalUser creates or updates local user record from external auth result
func (s *UserService) syncExternalUser(
	result *auth.AuthResult,
	authSource string,
) (*models.User, error) {
	user, err := s.store.UpsertExternalUser(
		result.Username,
		result.ExternalID,
		authSource,
		result.Email,
		result.FullName,
		result.ExternalDN,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert external user: %w", err)
	}

	return user, nil
}

func (s *UserService) auditLoginSuccess(
	ctx context.Context,
	user *models.User,
	source string,
	result *auth.AuthResult,
) {
	details := models.AuditDetails{
		"auth_source": source,
		"group_count": len(result.Groups),
	}
	// Provider-specific facts, e.g. the directory provider's per-channel
	// group counts
	for k, v := range result.Details {
		details[k] = v
	}
	s.audit.Log(ctx, AuditLogEntry{
		EventType:     models.EventAuthenticationSuccess,
		Severity:      models.SeverityInfo,
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		ResourceType:  models.ResourceUser,
		ResourceID:    user.ID,
		ResourceName:  user.Username,
		Action:        "login",
		Details:       details,
		Success:       true,
	})
}

// auditLoginFailure records the precise reason. The distinction between a
// missing user and a bad password lives only here, responses never carry
// it.
func (s *UserService) auditLoginFailure(
	ctx context.Context,
	username, userID, source string,
	err error,
) {
	eventType := models.EventAuthenticationFailure
	if errors.Is(err, ErrUserNotFound) {
		eventType = models.EventUserNotFound
	}
	entry := AuditLogEntry{
		EventType:     eventType,
		Severity:      models.SeverityWarning,
		ActorUserID:   userID,
		ActorUsername: username,
		ResourceType:  models.ResourceUser,
		ResourceID:    userID,
		ResourceName:  username,
		Action:        "login failed",
		Details: models.AuditDetails{
			"auth_source": source,
		},
		Success: false,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	s.audit.Log(ctx, entry)
}

func (s *UserService) GetUserByID(id string) (*models.User, error) {
	return s.store.GetUserByID(id)
}
