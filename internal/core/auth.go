package core

import "context"

// AuthResult holds the outcome of an authentication attempt.
type AuthResult struct {
	Username   string
	ExternalID string   // External user id (e.g. the directory id attribute)
	ExternalDN string   // Distinguished name of the directory entry, if any
	Email      string   // Optional
	FullName   string   // Optional
	Groups     []string // Resolved group memberships, nil when the backend has none
	Success    bool

	// Details carries provider-specific facts about a successful
	// attempt for the audit trail, nil when the backend has none.
	Details map[string]any
}

// AuthProvider is the interface that password-based authentication
// backends must implement.
type AuthProvider interface {
	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)
	Name() string
}
