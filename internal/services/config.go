package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/ldap"
	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/store"

	"go.uber.org/zap"
)

// ErrInvalidConfig reports a submitted directory configuration the engine
// could not work with.
var ErrInvalidConfig = errors.New("invalid directory configuration")

// EngineConfig converts the stored configuration row into the engine
// configuration. The legacy scope value "object" reads as base, empty
// enum values fall back to their defaults.
func EngineConfig(m *models.LDAPConfig) *ldap.Config {
	scope := ldap.Scope(m.SearchScope)
	switch m.SearchScope {
	case "object":
		scope = ldap.ScopeBase
	case "":
		scope = ldap.ScopeSub
	}
	strategy := ldap.ReferralStrategy(m.ReferralStrategy)
	if m.ReferralStrategy == "" {
		strategy = ldap.ReferralFollow
	}
	return &ldap.Config{
		HostURL:            m.HostURL,
		ConnectionDN:       m.ConnectionDN,
		ConnectionPassword: m.ConnectionPassword,
		BaseDN:             m.BaseDN,
		UnitPeople:         m.UnitPeople,
		UnitGroup:          m.UnitGroup,

		SearchFilter:      m.SearchFilter,
		SearchFilterGroup: m.SearchFilterGroup,

		AttributeNameID:       m.AttributeNameID,
		AttributeNameFullname: m.AttributeNameFullname,
		AttributeNameMail:     m.AttributeNameMail,
		AttributeNameGroup:    m.AttributeNameGroup,

		SearchScope:      scope,
		ReferralStrategy: strategy,

		EnableStartTLS: m.EnableStartTLS,
		ConnectTimeout: time.Duration(m.ConnectTimeout) * time.Millisecond,
		ReadTimeout:    time.Duration(m.ReadTimeout) * time.Millisecond,
	}
}

// ConnectionTestResult is the outcome of a configuration test. The stage
// flags come straight from the authentication attempt, user and groups
// are filled on success.
type ConnectionTestResult struct {
	*ldap.State
	Error  string              `json:"error,omitempty"`
	User   *ldap.DirectoryUser `json:"user,omitempty"`
	Groups []string            `json:"groups,omitempty"`
}

// ConfigService manages the stored directory configuration and keeps the
// running authentication engine in sync with it.
type ConfigService struct {
	store        *store.Store
	ldapProvider *auth.LDAPAuthProvider // nil when directory auth is not active
	audit        *AuditService
	metrics      core.Recorder
	logger       *zap.Logger
}

// NewConfigService creates the directory configuration service. A nil
// ldapProvider means configuration updates are stored without swapping a
// running engine.
func NewConfigService(
	s *store.Store,
	ldapProvider *auth.LDAPAuthProvider,
	audit *AuditService,
	metrics core.Recorder,
	logger *zap.Logger,
) *ConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigService{
		store:        s,
		ldapProvider: ldapProvider,
		audit:        audit,
		metrics:      metrics,
		logger:       logger,
	}
}

// Get returns the stored configuration with the connection password
// replaced by the dummy marker.
func (s *ConfigService) Get(ctx context.Context) (models.LDAPConfig, error) {
	stored, err := s.store.GetLDAPConfig()
	if err != nil {
		return models.LDAPConfig{}, err
	}

	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventDirectoryConfigViewed,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceDirectoryConfig,
		ResourceName: stored.HostURL,
		Action:       "directory configuration viewed",
		Success:      true,
	})
	return stored.Sanitized(), nil
}

// Update validates and stores a new configuration and swaps the running
// engine. A submitted password equal to the dummy marker keeps the stored
// password.
func (s *ConfigService) Update(
	ctx context.Context,
	submitted *models.LDAPConfig,
) (models.LDAPConfig, error) {
	stored, err := s.store.GetLDAPConfig()
	if err != nil {
		return models.LDAPConfig{}, err
	}

	if submitted.ConnectionPassword == models.DummyPassword {
		submitted.ConnectionPassword = stored.ConnectionPassword
	}

	engineCfg := EngineConfig(submitted)
	if err := engineCfg.Validate(); err != nil {
		s.metrics.RecordConfigUpdate(false)
		s.auditConfigChange(ctx, submitted, false, err)
		return models.LDAPConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Save replaces the whole row, keep the original creation time
	submitted.CreatedAt = stored.CreatedAt
	if err := s.store.SaveLDAPConfig(submitted); err != nil {
		s.metrics.RecordConfigUpdate(false)
		s.auditConfigChange(ctx, submitted, false, err)
		return models.LDAPConfig{}, err
	}

	if s.ldapProvider != nil {
		s.ldapProvider.SetEngine(ldap.NewEngine(engineCfg, nil, nil, s.logger))
		s.logger.Info("directory engine reloaded",
			zap.String("host", submitted.HostURL))
	}

	s.metrics.RecordConfigUpdate(true)
	s.auditConfigChange(ctx, submitted, true, nil)
	return submitted.Sanitized(), nil
}

// Test runs one authentication attempt with the submitted configuration
// without touching the stored one. A nil configuration tests the stored
// one, and the dummy password marker resolves to the stored password, so
// a saved configuration can be tested as-is.
func (s *ConfigService) Test(
	ctx context.Context,
	submitted *models.LDAPConfig,
	username, password string,
) (*ConnectionTestResult, error) {
	if submitted == nil {
		stored, err := s.store.GetLDAPConfig()
		if err != nil {
			return nil, err
		}
		submitted = stored
	} else if submitted.ConnectionPassword == models.DummyPassword {
		stored, err := s.store.GetLDAPConfig()
		if err != nil {
			return nil, err
		}
		submitted.ConnectionPassword = stored.ConnectionPassword
	}

	engineCfg := EngineConfig(submitted)
	if err := engineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	engine := ldap.NewEngine(engineCfg, nil, nil, s.logger)
	result := engine.Authenticate(username, password)

	test := &ConnectionTestResult{State: result.State}
	if err := result.State.Err(); err != nil {
		test.Error = err.Error()
	}
	if result.Status == ldap.StatusSuccess {
		test.User = result.User
		test.Groups = result.Groups
	}

	s.metrics.RecordConfigTest(result.Status.String())
	s.audit.Log(ctx, AuditLogEntry{
		EventType:    models.EventDirectoryConfigTested,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceDirectoryConfig,
		ResourceName: submitted.HostURL,
		Action:       "directory configuration tested",
		Details: models.AuditDetails{
			"host_url":      submitted.HostURL,
			"test_username": username,
			"result":        result.Status.String(),
		},
		Success:      result.Status == ldap.StatusSuccess,
		ErrorMessage: test.Error,
	})
	return test, nil
}

func (s *ConfigService) auditConfigChange(
	ctx context.Context,
	cfg *models.LDAPConfig,
	success bool,
	err error,
) {
	entry := AuditLogEntry{
		EventType:    models.EventDirectoryConfigUpdated,
		Severity:     models.SeverityWarning,
		ResourceType: models.ResourceDirectoryConfig,
		ResourceName: cfg.HostURL,
		Action:       "directory configuration updated",
		Details: models.AuditDetails{
			"host_url":          cfg.HostURL,
			"base_dn":           cfg.BaseDN,
			"search_scope":      cfg.SearchScope,
			"referral_strategy": cfg.ReferralStrategy,
			"start_tls":         cfg.EnableStartTLS,
		},
		Success: success,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	// Configuration changes matter for forensics, write them through
	if logErr := s.audit.LogSync(ctx, entry); logErr != nil {
		s.logger.Warn("could not write config audit entry", zap.Error(logErr))
	}
}
