package models

import (
	"time"
)

// DummyPassword replaces the stored connection password in API responses
// so the secret never leaves the server. An update carrying this marker
// keeps the stored password.
const DummyPassword = "__DUMMY__"

// LDAPConfig is the stored directory connection configuration. A single
// row (ID 1) holds the active configuration.
type LDAPConfig struct {
	ID uint `gorm:"primaryKey" json:"-"`

	// Connection
	HostURL            string `gorm:"not null"                  json:"hostUrl"  default:"ldap://localhost:389" binding:"required,ldapurl"`
	ConnectionDN       string `gorm:"column:connection_dn"      json:"connectionDn"`
	ConnectionPassword string `gorm:"column:connection_password" json:"connectionPassword"`
	EnableStartTLS     bool   `gorm:"column:enable_start_tls"   json:"enableStartTls"`

	// Timeouts in milliseconds. Zero falls back to the engine defaults.
	ConnectTimeout int64 `json:"connectTimeout" default:"120000" binding:"omitempty,min=0"`
	ReadTimeout    int64 `json:"readTimeout"    default:"720000" binding:"omitempty,min=0"`

	// Search tree layout
	BaseDN     string `gorm:"column:base_dn" json:"baseDn" default:"dc=example,dc=org"`
	UnitPeople string `json:"unitPeople"                   default:"ou=People"`
	UnitGroup  string `json:"unitGroup"                    default:"ou=Groups"`

	// Filter templates. {0} is the username in the user filter; the group
	// filter sees {0}=user DN, {1}=user id, {2}=mail.
	SearchFilter      string `json:"searchFilter"      default:"(&(uid={0})(objectClass=person))"`
	SearchFilterGroup string `json:"searchFilterGroup" default:"(&(objectClass=groupOfUniqueNames)(uniqueMember={0}))"`

	// Attribute mapping
	AttributeNameID       string `gorm:"column:attribute_name_id" json:"attributeNameId"       default:"uid"`
	AttributeNameFullname string `json:"attributeNameFullname"                                 default:"cn"`
	AttributeNameMail     string `json:"attributeNameMail"                                     default:"mail"`
	AttributeNameGroup    string `json:"attributeNameGroup"                                    default:"memberOf"`

	// SearchScope takes base, one or sub; the legacy value "object" is
	// read as base. ReferralStrategy takes follow, ignore or throw.
	SearchScope      string `json:"searchScope"      default:"sub"    binding:"omitempty,oneof=base one sub object"`
	ReferralStrategy string `json:"referralStrategy" default:"follow" binding:"omitempty,oneof=follow ignore throw"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for GORM
func (LDAPConfig) TableName() string {
	return "ldap_configs"
}

// Sanitized returns a copy safe for API responses, with the connection
// password replaced by the dummy marker.
func (c *LDAPConfig) Sanitized() LDAPConfig {
	dup := *c
	dup.ConnectionPassword = DummyPassword
	return dup
}
