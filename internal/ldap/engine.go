package ldap

import (
	"fmt"
	"sort"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// ConnectFunc opens a bound connection. The engine is constructed with one
// so tests can substitute the whole connection layer.
type ConnectFunc func(cfg *Config, id *Identity) (*Connection, error)

// Engine runs the staged authentication flow against one directory.
type Engine struct {
	cfg     *Config
	connect ConnectFunc
	policy  *SearchPolicy
	logger  *zap.Logger
}

// NewEngine wires an engine for cfg. A nil connect falls back to Open, a
// nil policy to NewSearchPolicy and a nil logger to a no-op logger.
func NewEngine(cfg *Config, connect ConnectFunc, policy *SearchPolicy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if connect == nil {
		log := logger
		connect = func(cfg *Config, id *Identity) (*Connection, error) {
			return Open(cfg, id, WithLogger(log))
		}
	}
	if policy == nil {
		policy = NewSearchPolicy(cfg, logger)
	}
	return &Engine{cfg: cfg, connect: connect, policy: policy, logger: logger}
}

// Config returns the configuration the engine was built for.
func (e *Engine) Config() *Config { return e.cfg }

// Authenticate runs the bind, user search, credential check and group
// resolution stages. It never returns an error, the outcome including any
// stage failure is in the result.
func (e *Engine) Authenticate(username, password string) *Result {
	state := &State{}
	result := &Result{Status: StatusNotFound, State: state}

	bindConn, err := e.connect(e.cfg, e.cfg.serviceIdentity())
	if err != nil {
		state.setBind(false)
		state.capture(err)
		e.logger.Error("could not bind to directory server",
			zap.String("host", e.cfg.HostURL),
			zap.Error(err))
		return result
	}
	state.setBind(true)
	defer bindConn.Close()

	entry, err := e.policy.FindUser(bindConn, username)
	if err != nil {
		state.setSearchUser(false)
		state.capture(err)
		e.logger.Error("user search failed",
			zap.String("username", username),
			zap.Error(err))
		return result
	}
	if entry == nil {
		state.setSearchUser(false)
		e.logger.Warn("no directory entry found for user",
			zap.String("username", username))
		return result
	}
	state.setSearchUser(true)
	e.logger.Debug("found directory entry", zap.String("dn", entry.DN))

	if err := e.checkCredentials(entry.DN, password); err != nil {
		state.setAuthenticateUser(false)
		state.capture(err)
		result.Status = StatusFailed
		e.logger.Warn("directory rejected credentials",
			zap.String("username", username),
			zap.String("dn", entry.DN))
		return result
	}
	state.setAuthenticateUser(true)

	user := userFromEntry(e.cfg, entry)
	result.Status = StatusSuccess
	result.User = user
	result.Groups, result.GroupChannels = e.resolveGroups(bindConn, entry, user)

	e.logger.Info("user authenticated",
		zap.String("username", username),
		zap.String("dn", user.DN),
		zap.Int("groups", len(result.Groups)))
	return result
}

// checkCredentials opens a second connection bound as the user. The bind
// either proves the password or the attempt fails, an unreachable server
// at this point counts as a failure as well.
func (e *Engine) checkCredentials(userDN, password string) error {
	conn, err := e.connect(e.cfg, &Identity{DN: userDN, Password: password})
	if err != nil {
		if ldapv3.IsErrorWithCode(err, ldapv3.LDAPResultInvalidCredentials) {
			return fmt.Errorf("%w: %v", ErrCredentials, err)
		}
		return err
	}
	conn.Close()
	return nil
}

// resolveGroups merges the group search with the group attribute of the
// user entry. Group resolution never fails an authenticated result, any
// trouble here only yields fewer groups. The returned channel counts
// record the per-channel contributions the merge flattens away.
func (e *Engine) resolveGroups(bindConn *Connection, entry *ldapv3.Entry, user *DirectoryUser) ([]string, GroupChannels) {
	set := make(map[string]struct{})
	var channels GroupChannels

	conn := bindConn
	if conn.Closed() {
		fresh, err := e.connect(e.cfg, e.cfg.serviceIdentity())
		if err != nil {
			e.logger.Debug("could not reopen connection for group search", zap.Error(err))
			conn = nil
		} else {
			defer fresh.Close()
			conn = fresh
		}
	}
	if conn != nil {
		names, err := e.policy.FindGroups(conn, user.DN, user.ID, user.Mail)
		if err != nil {
			e.logger.Debug("could not find groups for user",
				zap.String("dn", user.DN),
				zap.Error(err))
		}
		channels.Search = len(names)
		for _, name := range names {
			set[name] = struct{}{}
		}
	}

	entryNames := groupsFromEntry(entry, e.cfg.AttributeNameGroup)
	channels.Entry = len(entryNames)
	for _, name := range entryNames {
		set[name] = struct{}{}
	}

	groups := make([]string, 0, len(set))
	for name := range set {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	return groups, channels
}
