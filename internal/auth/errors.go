package auth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserNotFound reports that the subject does not exist in the
	// backing directory. It wraps ErrInvalidCredentials so login handlers
	// treat both identically and never leak the distinction to clients;
	// only audit logging tells them apart.
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrInvalidCredentials)

	// HTTP API errors
	ErrHTTPAPIConnection  = errors.New("failed to connect to authentication API")
	ErrHTTPAPIAuthFailed  = errors.New("authentication API rejected credentials")
	ErrHTTPAPIInvalidResp = errors.New("invalid response from authentication API")
)
