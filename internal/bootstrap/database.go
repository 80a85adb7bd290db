package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/store"
)

// initializeDatabase creates and initializes the database connection
func initializeDatabase(cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database initialized", zap.String("driver", cfg.DatabaseDriver))
	return db, nil
}
