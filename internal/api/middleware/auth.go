package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/library-circulation/internal/domain/identity"
	"github.com/library-circulation/internal/platform/auth"
)

// IdentityKey is the gin context key holding the verified caller
const IdentityKey = "identity"

// Authenticate verifies the bearer token and attaches the caller to both the
// gin context and the request context.
func Authenticate(logger *slog.Logger, verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		caller, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			logger.Warn("Rejected bearer token",
				"path", c.Request.URL.Path,
				"correlation_id", GetCorrelationID(c),
				"error", err,
			)
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		c.Set(IdentityKey, caller)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), caller))
		c.Next()
	}
}

// RequireRoles lets the request through only when the caller holds one of roles.
// It must run after Authenticate.
func RequireRoles(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return
		}
		if !caller.HasRole(roles...) {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Role "+string(caller.Role)+" may not perform this operation")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the caller stored by Authenticate
func GetIdentity(c *gin.Context) (identity.Identity, bool) {
	if value, exists := c.Get(IdentityKey); exists {
		caller, ok := value.(identity.Identity)
		return caller, ok
	}
	return identity.Identity{}, false
}
