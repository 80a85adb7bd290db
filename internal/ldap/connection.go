package ldap

import (
	"fmt"
	"net/url"
	"strings"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// Connection wraps one bound protocol connection. All searches run through
// it so the configured referral strategy applies uniformly.
type Connection struct {
	conn     Conn
	cfg      *Config
	identity *Identity
	dialer   Dialer
	logger   *zap.Logger
	closed   bool
}

type openSettings struct {
	dialer Dialer
	logger *zap.Logger
}

// Option adjusts how a Connection is opened.
type Option func(*openSettings)

// WithDialer replaces the default dialer. Tests use it to hand in fakes.
func WithDialer(d Dialer) Option {
	return func(s *openSettings) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithLogger attaches a logger to the connection.
func WithLogger(logger *zap.Logger) Option {
	return func(s *openSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open dials cfg.HostURL and binds with the given identity. A nil identity
// binds anonymously. With StartTLS enabled on a plaintext URL the identity
// bind is deferred until after the upgrade, and an identity bind is then
// verified with a base object read before the connection is handed out.
// There is no plaintext fallback, a failed upgrade fails the connection.
func Open(cfg *Config, id *Identity, opts ...Option) (*Connection, error) {
	settings := openSettings{dialer: defaultDialer, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&settings)
	}

	raw, err := settings.dialer.Dial(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	c := &Connection{
		conn:     raw,
		cfg:      cfg,
		identity: id,
		dialer:   settings.dialer,
		logger:   settings.logger,
	}

	if cfg.EnableStartTLS && !cfg.isLDAPS() {
		if err := c.startTLS(); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}

	if err := bindIdentity(c.conn, id); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return c, nil
}

// startTLS upgrades the connection and performs the deferred bind. Some
// servers accept a bind operation and only reject the identity on first
// use, so an identity bind is proven with a read of the base DN.
func (c *Connection) startTLS() error {
	if err := c.conn.StartTLS(c.cfg.tlsClientConfig()); err != nil {
		return fmt.Errorf("%w: starttls negotiation failed: %w", ErrConnection, err)
	}
	c.logger.Debug("starttls negotiated", zap.String("host", c.cfg.HostURL))

	if err := bindIdentity(c.conn, c.identity); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if c.identity == nil {
		return nil
	}

	req := ldapv3.NewSearchRequest(
		c.cfg.BaseDN,
		ldapv3.ScopeBaseObject,
		ldapv3.NeverDerefAliases,
		1, 0, false,
		"(objectClass=*)",
		[]string{"dn"},
		nil,
	)
	if _, err := c.conn.Search(req); err != nil {
		return fmt.Errorf("%w: bind verification against %q failed: %w", ErrConnection, c.cfg.BaseDN, err)
	}
	return nil
}

func bindIdentity(conn Conn, id *Identity) error {
	if id == nil {
		return conn.UnauthenticatedBind("")
	}
	return conn.Bind(id.DN, id.Password)
}

// Search runs one search and applies the configured referral strategy.
// Hitting the size limit is not an error, the entries that arrived are
// returned.
func (c *Connection) Search(baseDN, filter string, scope Scope, attributes []string, sizeLimit int) ([]*ldapv3.Entry, error) {
	wireScope, err := scope.ldapScope()
	if err != nil {
		return nil, err
	}
	req := ldapv3.NewSearchRequest(
		baseDN,
		wireScope,
		ldapv3.NeverDerefAliases,
		sizeLimit, 0, false,
		filter,
		attributes,
		nil,
	)

	res, err := c.conn.Search(req)
	switch {
	case err == nil:
	case ldapv3.IsErrorWithCode(err, ldapv3.LDAPResultSizeLimitExceeded):
	case ldapv3.IsErrorWithCode(err, ldapv3.LDAPResultReferral):
		return c.referralResult(req, res, err)
	default:
		return nil, fmt.Errorf("%w: search %q below %q: %w", ErrSearch, filter, baseDN, err)
	}
	if res == nil {
		return nil, nil
	}

	entries := res.Entries
	if len(res.Referrals) > 0 {
		switch c.cfg.ReferralStrategy {
		case ReferralThrow:
			return nil, fmt.Errorf("%w: search below %q returned %d unresolved referrals", ErrSearch, baseDN, len(res.Referrals))
		case ReferralFollow:
			entries = append(entries, c.chaseReferrals(req, res.Referrals)...)
		}
	}
	return entries, nil
}

// referralResult handles servers that answer with a referral result code
// instead of continuation references. The code carries no target URL, so
// the follow strategy degrades to ignore here.
func (c *Connection) referralResult(req *ldapv3.SearchRequest, res *ldapv3.SearchResult, err error) ([]*ldapv3.Entry, error) {
	if c.cfg.ReferralStrategy == ReferralThrow {
		return nil, fmt.Errorf("%w: search below %q was referred: %w", ErrSearch, req.BaseDN, err)
	}
	c.logger.Debug("ignoring referral result",
		zap.String("baseDN", req.BaseDN),
		zap.Error(err))
	if res == nil {
		return nil, nil
	}
	return res.Entries, nil
}

// chaseReferrals follows each referral URL once with the connection's own
// identity. Failures only shrink the merged result.
func (c *Connection) chaseReferrals(req *ldapv3.SearchRequest, refs []string) []*ldapv3.Entry {
	var entries []*ldapv3.Entry
	for _, ref := range refs {
		found, err := c.searchReferral(req, ref)
		if err != nil {
			c.logger.Warn("could not follow referral",
				zap.String("referral", ref),
				zap.Error(err))
			continue
		}
		entries = append(entries, found...)
	}
	return entries
}

func (c *Connection) searchReferral(req *ldapv3.SearchRequest, ref string) ([]*ldapv3.Entry, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid referral url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("referral url %q has no host", ref)
	}

	refCfg := c.cfg.clone()
	refCfg.HostURL = u.Scheme + "://" + u.Host

	raw, err := c.dialer.Dial(refCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := raw.Close(); cerr != nil {
			c.logger.Debug("error closing referral connection", zap.Error(cerr))
		}
	}()

	if err := bindIdentity(raw, c.identity); err != nil {
		return nil, err
	}

	sub := *req
	if base := strings.TrimPrefix(u.Path, "/"); base != "" {
		if dn, err := url.PathUnescape(base); err == nil {
			sub.BaseDN = dn
		}
	}

	res, err := raw.Search(&sub)
	if err != nil && !ldapv3.IsErrorWithCode(err, ldapv3.LDAPResultSizeLimitExceeded) {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.Entries, nil
}

// Close releases the underlying connection. Closing twice or closing a
// nil connection is a no-op.
func (c *Connection) Close() {
	if c == nil || c.closed {
		return
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("error closing directory connection", zap.Error(err))
	}
}

// Closed reports whether Close was called.
func (c *Connection) Closed() bool {
	return c == nil || c.closed
}
