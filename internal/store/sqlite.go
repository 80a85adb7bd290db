package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/models"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string, cfg *config.Config) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.LDAPConfig{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	// Seed default data
	if err := store.seedData(cfg); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

func (s *Store) seedData(cfg *config.Config) error {
	// Create default admin user if no users exist
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		password := ""
		if cfg != nil {
			password = strings.TrimSpace(cfg.DefaultAdminPassword)
		}
		generated := password == ""
		if generated {
			var err error
			password, err = generateRandomPassword(16)
			if err != nil {
				return err
			}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := &models.User{
			ID:           uuid.New().String(),
			Username:     "admin",
			Email:        "admin@localhost", // Default email for admin
			PasswordHash: string(hash),
			Role:         "admin",
			AuthSource:   "local",
		}
		if err := s.CreateUser(user); err != nil {
			return err
		}
		if generated {
			log.Printf("Created default user: admin / %s (role: admin)", password)
		} else {
			log.Printf("Created default user: admin (role: admin)")
		}
	}

	// Store the initial directory configuration if none exists. Values
	// missing from the environment fall back to the model defaults.
	var configCount int64
	s.db.Model(&models.LDAPConfig{}).Count(&configCount)
	if configCount == 0 {
		ldapConfig := &models.LDAPConfig{}
		if cfg != nil {
			ldapConfig.HostURL = cfg.LDAPHostURL
			ldapConfig.ConnectionDN = cfg.LDAPConnectionDN
			ldapConfig.ConnectionPassword = cfg.LDAPConnectionPassword
			ldapConfig.BaseDN = cfg.LDAPBaseDN
			ldapConfig.EnableStartTLS = cfg.LDAPEnableStartTLS
		}
		if err := defaults.Set(ldapConfig); err != nil {
			return fmt.Errorf("failed to apply directory config defaults: %w", err)
		}
		ldapConfig.ID = ldapConfigID
		if err := s.db.Create(ldapConfig).Error; err != nil {
			return err
		}
		log.Printf("Created initial directory configuration for %s", ldapConfig.HostURL)
	}

	return nil
}

// User operations
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrRecordNotFound, username)
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user id %s", ErrRecordNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByExternalID finds a user by their external ID and auth source
func (s *Store) GetUserByExternalID(externalID, authSource string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("external_id = ? AND auth_source = ?", externalID, authSource).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: external id %s", ErrRecordNotFound, externalID)
		}
		return nil, err
	}
	return &user, nil
}

// UpsertExternalUser creates or updates a user from external authentication
func (s *Store) UpsertExternalUser(
	username, externalID, authSource, email, fullName, externalDN string,
) (*models.User, error) {
	var user models.User

	// Try to find existing user by external ID
	err := s.db.Where("external_id = ? AND auth_source = ?", externalID, authSource).
		First(&user).
		Error

	if err == nil {
		// User exists - check if username changed
		if user.Username != username {
			// Username changed, verify new username is available
			var conflictingUser models.User
			conflictErr := s.db.Where("username = ? AND id != ?", username, user.ID).
				First(&conflictingUser).
				Error

			if conflictErr == nil {
				// Username taken by another user
				return nil, ErrUsernameConflict
			}
			if !errors.Is(conflictErr, gorm.ErrRecordNotFound) {
				// Unexpected database error
				return nil, fmt.Errorf("failed to check username: %w", conflictErr)
			}
			// Username available, continue with update
		}

		// Update user fields
		user.Username = username
		user.Email = email
		user.FullName = fullName
		user.ExternalDN = externalDN
		if err := s.db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update external user: %w", err)
		}
		return &user, nil
	}

	// Handle query error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query external user: %w", err)
	}

	// User doesn't exist - check if username is available
	var existingUser models.User
	err = s.db.Where("username = ?", username).First(&existingUser).Error

	if err == nil {
		// Username already taken
		return nil, ErrUsernameConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// Unexpected database error
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	// Create new user
	user = models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: "", // No local password for external users
		Role:         "user",
		ExternalID:   externalID,
		ExternalDN:   externalDN,
		AuthSource:   authSource,
		Email:        email,
		FullName:     fullName,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create external user: %w", err)
	}

	return &user, nil
}

// CountUsersByAuthSource returns the number of users per authentication
// source. Rows predating the auth_source column count as local.
func (s *Store) CountUsersByAuthSource() (map[string]int64, error) {
	type row struct {
		AuthSource string
		Total      int64
	}
	var rows []row
	err := s.db.Model(&models.User{}).
		Select("auth_source, count(*) as total").
		Group("auth_source").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		source := r.AuthSource
		if source == "" {
			source = "local"
		}
		counts[source] += r.Total
	}
	return counts, nil
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}
