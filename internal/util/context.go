package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Context keys shared by the HTTP middleware and the audit trail. Plain
// string keys so values survive the hop from the gin context into the
// request context handed down to services.
const (
	ContextKeyClientIP = "client_ip"
	ContextKeyActor    = "actor"
)

// IPMiddleware resolves the client IP once per request and stores it in
// both the gin context and the request context, so services that only
// see a context.Context can still attribute the request.
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		ip := c.ClientIP()
		c.Set(ContextKeyClientIP, ip)
		//nolint:staticcheck // string key crosses the gin/context boundary
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ContextKeyClientIP, ip),
		)
		c.Next()
	}
}

// WithActor marks the request as acted by the given principal, mirroring
// the value into the request context like IPMiddleware does for the IP.
func WithActor(c *gin.Context, actor string) {
	c.Set(ContextKeyActor, actor)
	//nolint:staticcheck // string key crosses the gin/context boundary
	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ContextKeyActor, actor),
	)
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	// Try to get from context value (set by middleware)
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}

	return ""
}

// GetActorFromContext extracts the acting principal from the context
func GetActorFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.GetString(ContextKeyActor)
	}

	if actor, ok := ctx.Value(ContextKeyActor).(string); ok {
		return actor
	}

	return ""
}
