package bootstrap

import (
	"github.com/robert0714/scm-ldap-plugin/internal/handlers"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	auth   *handlers.AuthHandler
	config *handlers.ConfigHandler
	audit  *handlers.AuditHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	userService *services.UserService,
	configService *services.ConfigService,
	auditService *services.AuditService,
) handlerSet {
	return handlerSet{
		auth:   handlers.NewAuthHandler(userService),
		config: handlers.NewConfigHandler(configService),
		audit:  handlers.NewAuditHandler(auditService),
	}
}
