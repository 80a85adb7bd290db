package ldap

import (
	"crypto/tls"
	"time"

	ldapv3 "github.com/go-ldap/ldap/v3"
)

type bindCall struct {
	dn       string
	password string
}

// fakeConn is a scriptable Conn for tests without a directory server. It
// keeps an op log so ordering, e.g. bind after StartTLS, can be asserted.
type fakeConn struct {
	ops         []string
	bindErr     error
	bindCalls   []bindCall
	anonErr     error
	anonCalls   int
	startTLSErr error
	startTLSOK  bool
	searchFn    func(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error)
	searchReqs  []*ldapv3.SearchRequest
	closeErr    error
	closeCalls  int
	timeout     time.Duration
}

func (f *fakeConn) Bind(username, password string) error {
	f.ops = append(f.ops, "bind")
	f.bindCalls = append(f.bindCalls, bindCall{dn: username, password: password})
	return f.bindErr
}

func (f *fakeConn) UnauthenticatedBind(username string) error {
	f.ops = append(f.ops, "anon")
	f.anonCalls++
	return f.anonErr
}

func (f *fakeConn) StartTLS(config *tls.Config) error {
	f.ops = append(f.ops, "starttls")
	if f.startTLSErr != nil {
		return f.startTLSErr
	}
	f.startTLSOK = true
	return nil
}

func (f *fakeConn) SetTimeout(timeout time.Duration) { f.timeout = timeout }

func (f *fakeConn) Search(req *ldapv3.SearchRequest) (*ldapv3.SearchResult, error) {
	f.ops = append(f.ops, "search")
	f.searchReqs = append(f.searchReqs, req)
	if f.searchFn != nil {
		return f.searchFn(req)
	}
	return &ldapv3.SearchResult{}, nil
}

func (f *fakeConn) Close() error {
	f.ops = append(f.ops, "close")
	f.closeCalls++
	return f.closeErr
}

// fakeDialer hands out the given conns in order and records every config
// it was asked to dial.
type fakeDialer struct {
	conns []Conn
	errs  []error
	cfgs  []*Config
}

func (d *fakeDialer) Dial(cfg *Config) (Conn, error) {
	i := len(d.cfgs)
	d.cfgs = append(d.cfgs, cfg)
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) {
		return d.conns[i], nil
	}
	return &fakeConn{}, nil
}

func dialerFor(conns ...Conn) *fakeDialer {
	return &fakeDialer{conns: conns}
}

// connectVia builds a ConnectFunc that opens connections through the given
// dialer, mirroring what the engine does with the real one.
func connectVia(dialer Dialer) ConnectFunc {
	return func(cfg *Config, id *Identity) (*Connection, error) {
		return Open(cfg, id, WithDialer(dialer))
	}
}

func testConfig() *Config {
	return &Config{
		HostURL:               "ldap://directory.hitchhiker.com:389",
		ConnectionDN:          "cn=service,dc=hitchhiker,dc=com",
		ConnectionPassword:    "servicepw",
		BaseDN:                "dc=hitchhiker,dc=com",
		UnitPeople:            "ou=people",
		UnitGroup:             "ou=groups",
		SearchFilter:          "(uid={0})",
		SearchFilterGroup:     "(member={0})",
		AttributeNameID:       "uid",
		AttributeNameFullname: "cn",
		AttributeNameMail:     "mail",
		AttributeNameGroup:    "memberOf",
		SearchScope:           ScopeSub,
		ReferralStrategy:      ReferralIgnore,
	}
}
