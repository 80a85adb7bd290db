package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/robert0714/scm-ldap-plugin/internal/ldap"
)

// DirectoryAuthenticator is the part of the directory engine the provider
// needs. Satisfied by *ldap.Engine.
type DirectoryAuthenticator interface {
	Authenticate(username, password string) *ldap.Result
}

var _ DirectoryAuthenticator = (*ldap.Engine)(nil)

// LDAPAuthProvider authenticates users against an LDAP directory. The
// engine is swappable so configuration updates take effect without a
// restart.
type LDAPAuthProvider struct {
	mu     sync.RWMutex
	engine DirectoryAuthenticator
}

// NewLDAPAuthProvider creates a new directory authentication provider
func NewLDAPAuthProvider(engine DirectoryAuthenticator) *LDAPAuthProvider {
	return &LDAPAuthProvider{engine: engine}
}

// SetEngine replaces the engine used for subsequent authentications.
// In-flight authentications keep the engine they started with.
func (p *LDAPAuthProvider) SetEngine(engine DirectoryAuthenticator) {
	p.mu.Lock()
	p.engine = engine
	p.mu.Unlock()
}

// Authenticate verifies credentials against the directory
func (p *LDAPAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*AuthResult, error) {
	p.mu.RLock()
	engine := p.engine
	p.mu.RUnlock()

	result := engine.Authenticate(username, password)

	switch result.Status {
	case ldap.StatusSuccess:
		user := result.User
		name := user.ID
		if name == "" {
			// Entry carries no id attribute, keep the submitted name
			name = username
		}
		return &AuthResult{
			Username:   name,
			ExternalID: name,
			ExternalDN: user.DN,
			Email:      user.Mail,
			FullName:   user.DisplayName,
			Groups:     result.Groups,
			Success:    true,
			// The merged group set is channel-blind, the raw split
			// survives only in the audit detail
			Details: map[string]any{
				"groups_entry":  result.GroupChannels.Entry,
				"groups_search": result.GroupChannels.Search,
			},
		}, nil

	case ldap.StatusNotFound:
		if err := result.State.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUserNotFound, err)
		}
		return nil, ErrUserNotFound

	default:
		if err := result.State.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, ErrInvalidCredentials
	}
}

// Name returns provider name for logging
func (p *LDAPAuthProvider) Name() string {
	return "ldap"
}
