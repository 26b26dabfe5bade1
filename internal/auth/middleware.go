package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware authenticates the bearer token, if any, and enforces policy.
//
// A request without an Authorization header continues anonymously; a header
// that fails verification is rejected with 401 before any handler runs.
func Middleware(verifier Verifier, policy Policy, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			raw := BearerToken(header)
			claims, err := verifier.Verify(raw)
			if err != nil {
				logger.Debug("rejected token",
					slog.String("path", c.Request.URL.Path),
					slog.Any("error", err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), claims.Principal(), raw))
		}

		if _, restricted := policy.Roles(c.Request.Method, c.FullPath()); restricted {
			p, ok := PrincipalFrom(c.Request.Context())
			if !ok {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			if !policy.Permits(c.Request.Method, c.FullPath(), p.Role) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
				return
			}
		}

		c.Next()
	}
}
