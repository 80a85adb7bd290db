package store

import (
	"errors"
	"fmt"

	"github.com/robert0714/scm-ldap-plugin/internal/models"

	"gorm.io/gorm"
)

// ldapConfigID is the primary key of the single stored directory
// configuration row.
const ldapConfigID = 1

// GetLDAPConfig returns the stored directory configuration
func (s *Store) GetLDAPConfig() (*models.LDAPConfig, error) {
	var cfg models.LDAPConfig
	if err := s.db.First(&cfg, ldapConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: directory configuration", ErrRecordNotFound)
		}
		return nil, err
	}
	return &cfg, nil
}

// SaveLDAPConfig replaces the stored directory configuration
func (s *Store) SaveLDAPConfig(cfg *models.LDAPConfig) error {
	cfg.ID = ldapConfigID
	return s.db.Save(cfg).Error
}
