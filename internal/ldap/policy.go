package ldap

import (
	"fmt"
	"strings"

	ldapv3 "github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// groupNameAttribute is the naming attribute read from group entries.
// TODO: make the group naming attribute configurable.
const groupNameAttribute = "cn"

// SearchPolicy turns a configuration into concrete search parameters and
// runs the user and group searches of the authentication flow.
type SearchPolicy struct {
	cfg    *Config
	logger *zap.Logger
}

func NewSearchPolicy(cfg *Config, logger *zap.Logger) *SearchPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchPolicy{cfg: cfg, logger: logger}
}

// searchBaseDN composes a search base from a unit and the base DN.
func (p *SearchPolicy) searchBaseDN(unit string) (string, error) {
	if p.cfg.BaseDN == "" {
		return "", fmt.Errorf("%w: no base dn configured", ErrSearch)
	}
	if unit == "" {
		return p.cfg.BaseDN, nil
	}
	return unit + "," + p.cfg.BaseDN, nil
}

// UserSearchBaseDN is the search base for user entries.
func (p *SearchPolicy) UserSearchBaseDN() (string, error) {
	return p.searchBaseDN(p.cfg.UnitPeople)
}

// GroupSearchBaseDN is the search base for group entries.
func (p *SearchPolicy) GroupSearchBaseDN() (string, error) {
	return p.searchBaseDN(p.cfg.UnitGroup)
}

// UserSearchFilter renders the user filter template with the escaped
// username.
func (p *SearchPolicy) UserSearchFilter(username string) (string, error) {
	if p.cfg.SearchFilter == "" {
		return "", fmt.Errorf("%w: user search filter not defined", ErrSearch)
	}
	return strings.ReplaceAll(p.cfg.SearchFilter, "{0}", ldapv3.EscapeFilter(username)), nil
}

// GroupSearchFilter renders the group filter template. {0} is the user DN,
// {1} the user id and {2} the mail address, all escaped.
func (p *SearchPolicy) GroupSearchFilter(userDN, userID, mail string) (string, error) {
	if p.cfg.SearchFilterGroup == "" {
		return "", fmt.Errorf("%w: group search filter not defined", ErrSearch)
	}
	r := strings.NewReplacer(
		"{0}", ldapv3.EscapeFilter(userDN),
		"{1}", ldapv3.EscapeFilter(userID),
		"{2}", ldapv3.EscapeFilter(mail),
	)
	return r.Replace(p.cfg.SearchFilterGroup), nil
}

// userAttributes lists the attributes the user search asks the server to
// return. Unset attribute names are left out.
func (p *SearchPolicy) userAttributes() []string {
	var attrs []string
	for _, name := range []string{
		p.cfg.AttributeNameID,
		p.cfg.AttributeNameFullname,
		p.cfg.AttributeNameMail,
		p.cfg.AttributeNameGroup,
	} {
		if name != "" {
			attrs = append(attrs, name)
		}
	}
	return attrs
}

// FindUser looks up the unique user entry for a username. A nil entry
// without an error means no entry matched.
func (p *SearchPolicy) FindUser(conn *Connection, username string) (*ldapv3.Entry, error) {
	filter, err := p.UserSearchFilter(username)
	if err != nil {
		return nil, err
	}
	baseDN, err := p.UserSearchBaseDN()
	if err != nil {
		return nil, err
	}
	p.logger.Debug("searching user",
		zap.String("filter", filter),
		zap.String("baseDN", baseDN),
		zap.String("scope", string(p.cfg.SearchScope)))

	entries, err := conn.Search(baseDN, filter, p.cfg.SearchScope, p.userAttributes(), 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// FindGroups searches group entries referencing the user and returns their
// names. The group search always descends the whole subtree.
func (p *SearchPolicy) FindGroups(conn *Connection, userDN, userID, mail string) ([]string, error) {
	filter, err := p.GroupSearchFilter(userDN, userID, mail)
	if err != nil {
		return nil, err
	}
	baseDN, err := p.GroupSearchBaseDN()
	if err != nil {
		return nil, err
	}
	p.logger.Debug("searching groups",
		zap.String("filter", filter),
		zap.String("baseDN", baseDN))

	entries, err := conn.Search(baseDN, filter, ScopeSub, []string{groupNameAttribute}, 0)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name := entry.GetAttributeValue(groupNameAttribute); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
