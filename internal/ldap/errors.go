package ldap

import "errors"

var (
	// ErrConnection covers unreachable hosts, rejected service binds and
	// failed StartTLS negotiation.
	ErrConnection = errors.New("cannot connect to directory server")

	// ErrSearch covers unusable filters or base DNs, search timeouts and
	// unresolved referrals.
	ErrSearch = errors.New("directory search failed")

	// ErrCredentials is returned when the directory rejects the password
	// of an otherwise known user.
	ErrCredentials = errors.New("directory rejected credentials")
)
