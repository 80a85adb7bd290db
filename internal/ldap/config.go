package ldap

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

// Scope selects how deep a user search descends below the people unit.
type Scope string

const (
	ScopeBase Scope = "base"
	ScopeOne  Scope = "one"
	ScopeSub  Scope = "sub"
)

// ldapScope maps a scope to the wire-level constant of the protocol client.
func (s Scope) ldapScope() (int, error) {
	switch s {
	case ScopeBase:
		return ldapv3.ScopeBaseObject, nil
	case ScopeOne:
		return ldapv3.ScopeSingleLevel, nil
	case ScopeSub:
		return ldapv3.ScopeWholeSubtree, nil
	default:
		return 0, fmt.Errorf("%w: unknown search scope %q", ErrSearch, string(s))
	}
}

// ReferralStrategy decides what happens when the directory answers a search
// with a referral instead of (or in addition to) entries.
type ReferralStrategy string

const (
	// ReferralFollow chases each referral once with the same identity and
	// merges the entries it finds.
	ReferralFollow ReferralStrategy = "follow"
	// ReferralIgnore drops referrals and keeps whatever entries arrived.
	ReferralIgnore ReferralStrategy = "ignore"
	// ReferralThrow fails the search on any referral.
	ReferralThrow ReferralStrategy = "throw"
)

func (r ReferralStrategy) valid() bool {
	switch r {
	case ReferralFollow, ReferralIgnore, ReferralThrow:
		return true
	}
	return false
}

const (
	defaultConnectTimeout = 120000 * time.Millisecond
	defaultReadTimeout    = 720000 * time.Millisecond
)

var (
	connectTimeoutDefault = envTimeout("LDAP_CONNECT_TIMEOUT", defaultConnectTimeout)
	readTimeoutDefault    = envTimeout("LDAP_READ_TIMEOUT", defaultReadTimeout)
)

// envTimeout reads a timeout override from the environment. Plain integers
// are taken as milliseconds, Go duration strings work as well.
func envTimeout(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Identity is the DN/password pair a connection binds with. A nil identity
// means an anonymous bind.
type Identity struct {
	DN       string
	Password string
}

// Config describes one directory server and how to search it. The zero
// value is not usable, callers fill it from stored configuration and run
// Validate before opening connections.
type Config struct {
	// HostURL is an ldap:// or ldaps:// URL including the port.
	HostURL string

	// ConnectionDN and ConnectionPassword form the service identity used
	// for searches. If either is empty the engine binds anonymously.
	ConnectionDN       string
	ConnectionPassword string

	// BaseDN is the root every search base is composed from.
	BaseDN string

	// UnitPeople and UnitGroup are relative DNs prepended to BaseDN for
	// user and group searches. Either may be empty.
	UnitPeople string
	UnitGroup  string

	// SearchFilter finds the user entry, {0} is replaced with the escaped
	// username. SearchFilterGroup finds group entries, {0} is the user DN,
	// {1} the user id and {2} the mail address.
	SearchFilter      string
	SearchFilterGroup string

	// Attribute names read from the user entry.
	AttributeNameID       string
	AttributeNameFullname string
	AttributeNameMail     string
	AttributeNameGroup    string

	SearchScope      Scope
	ReferralStrategy ReferralStrategy

	// EnableStartTLS upgrades plaintext connections before any identity
	// bind happens. It has no effect on ldaps:// URLs.
	EnableStartTLS bool

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// TLS is an optional explicit client configuration used for ldaps://
	// and StartTLS. When nil a verifying configuration is derived from
	// the host URL.
	TLS *tls.Config
}

// Validate rejects configurations no connection could be opened with.
func (c *Config) Validate() error {
	if c.HostURL == "" {
		return fmt.Errorf("host url is required")
	}
	u, err := url.Parse(c.HostURL)
	if err != nil {
		return fmt.Errorf("invalid host url %q: %w", c.HostURL, err)
	}
	switch u.Scheme {
	case "ldap", "ldaps":
	default:
		return fmt.Errorf("unsupported scheme %q in host url", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host url %q has no host", c.HostURL)
	}
	if _, err := c.SearchScope.ldapScope(); err != nil {
		return fmt.Errorf("invalid search scope %q", string(c.SearchScope))
	}
	if !c.ReferralStrategy.valid() {
		return fmt.Errorf("unknown referral strategy %q", string(c.ReferralStrategy))
	}
	return nil
}

func (c *Config) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return connectTimeoutDefault
}

func (c *Config) readTimeout() time.Duration {
	if c.ReadTimeout > 0 {
		return c.ReadTimeout
	}
	return readTimeoutDefault
}

// serviceIdentity returns the configured bind identity, or nil when the
// connection should be anonymous.
func (c *Config) serviceIdentity() *Identity {
	if c.ConnectionDN == "" || c.ConnectionPassword == "" {
		return nil
	}
	return &Identity{DN: c.ConnectionDN, Password: c.ConnectionPassword}
}

func (c *Config) isLDAPS() bool {
	u, err := url.Parse(c.HostURL)
	return err == nil && u.Scheme == "ldaps"
}

func (c *Config) serverName() string {
	u, err := url.Parse(c.HostURL)
	if err != nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(u.Host); err == nil {
		return host
	}
	return u.Host
}

// tlsClientConfig returns the client configuration for ldaps:// and
// StartTLS. The explicit configuration wins, otherwise certificates are
// verified against the host from the URL.
func (c *Config) tlsClientConfig() *tls.Config {
	if c.TLS != nil {
		return c.TLS.Clone()
	}
	return &tls.Config{
		ServerName: c.serverName(),
		MinVersion: tls.VersionTLS12,
	}
}

func (c *Config) clone() *Config {
	dup := *c
	return &dup
}
