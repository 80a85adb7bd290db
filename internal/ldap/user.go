package ldap

import (
	ldapv3 "github.com/go-ldap/ldap/v3"
)

// DirectoryUser is the account read from a matched directory entry.
type DirectoryUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	DN          string `json:"distinguishedName"`
}

func userFromEntry(cfg *Config, entry *ldapv3.Entry) *DirectoryUser {
	return &DirectoryUser{
		ID:          entry.GetAttributeValue(cfg.AttributeNameID),
		DisplayName: entry.GetAttributeValue(cfg.AttributeNameFullname),
		Mail:        entry.GetAttributeValue(cfg.AttributeNameMail),
		DN:          entry.DN,
	}
}

// groupsFromEntry reads the group attribute of the user entry. Values that
// parse as DNs contribute their leading naming value, plain values are
// taken as is.
func groupsFromEntry(entry *ldapv3.Entry, attribute string) []string {
	if attribute == "" {
		return nil
	}
	values := entry.GetAttributeValues(attribute)
	names := make([]string, 0, len(values))
	for _, value := range values {
		if name := leadingNamingValue(value); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// leadingNamingValue extracts the value of the first RDN of a DN, e.g.
// "admins" from "cn=admins,ou=groups,dc=example,dc=org". Values that do
// not parse as a DN are returned unchanged.
func leadingNamingValue(value string) string {
	dn, err := ldapv3.ParseDN(value)
	if err != nil || len(dn.RDNs) == 0 || len(dn.RDNs[0].Attributes) == 0 {
		return value
	}
	return dn.RDNs[0].Attributes[0].Value
}
