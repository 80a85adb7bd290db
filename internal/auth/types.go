package auth

import "github.com/robert0714/scm-ldap-plugin/internal/core"

// AuthResult is a type alias for core.AuthResult.
// Using an alias (not a new type) keeps all existing *auth.AuthResult
// references valid without any changes at call sites.
type AuthResult = core.AuthResult
