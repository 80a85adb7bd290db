package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/robert0714/scm-ldap-plugin/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminActor is the principal recorded for requests that pass bearer
// token authentication. The token is shared, so there is no finer
// identity to attribute.
const AdminActor = "admin"

// AdminAuthMiddleware protects an endpoint group with a static Bearer
// token compared in constant time. The realm names the protected
// surface in the WWW-Authenticate challenge. An empty token leaves the
// group open, deployments without one are expected to fence it off at
// the network layer.
func AdminAuthMiddleware(token, realm string) gin.HandlerFunc {
	challenge := `Bearer realm="` + realm + `"`

	return func(c *gin.Context) {
		// If no token configured, allow access (backwards compatibility)
		if token == "" {
			util.WithActor(c, AdminActor)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer token required",
			})
			return
		}

		// Extract token from "Bearer <token>"
		providedToken := strings.TrimPrefix(authHeader, "Bearer ")

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(providedToken), []byte(token)) != 1 {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid token",
			})
			return
		}

		util.WithActor(c, AdminActor)
		c.Next()
	}
}
