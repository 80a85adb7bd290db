package ldap

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// Conn is the subset of the protocol client a Connection needs. It exists
// so tests can swap in a fake without a directory server.
type Conn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	StartTLS(config *tls.Config) error
	SetTimeout(timeout time.Duration)
	Search(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error)
	Close() error
}

var _ Conn = (*ldapv3.Conn)(nil)

// Dialer opens the raw protocol connection for a Config.
type Dialer interface {
	Dial(cfg *Config) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(cfg *Config) (Conn, error)

func (f DialerFunc) Dial(cfg *Config) (Conn, error) {
	return f(cfg)
}

// defaultDialer connects with the configured timeouts and, for ldaps://
// URLs, the derived TLS client configuration.
var defaultDialer Dialer = DialerFunc(func(cfg *Config) (Conn, error) {
	opts := []ldapv3.DialOpt{
		ldapv3.DialWithDialer(&net.Dialer{Timeout: cfg.connectTimeout()}),
	}
	if strings.HasPrefix(cfg.HostURL, "ldaps://") {
		opts = append(opts, ldapv3.DialWithTLSConfig(cfg.tlsClientConfig()))
	}
	conn, err := ldapv3.DialURL(cfg.HostURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.HostURL, err)
	}
	conn.SetTimeout(cfg.readTimeout())
	return conn, nil
})
