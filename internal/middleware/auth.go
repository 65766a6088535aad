package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tracekit/harbox-api/internal/models"
	"github.com/tracekit/harbox-api/internal/service"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
	"github.com/tracekit/harbox-api/pkg/response"
)

const (
	// ContextClaimsKey is the gin context key storing the verified claims.
	ContextClaimsKey = "currentClaims"
	// ContextUserKey is the gin context key storing the resolved user.
	ContextUserKey = "currentUser"
)

// Auth protects routes by requiring a valid verification token, supplied
// either through the access-token cookie or an Authorization bearer header
// (cookie wins). Every failure yields the same unauthorized response.
func Auth(tokens *service.TokenService, accessCookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidate := extractToken(c, accessCookieName)
		if candidate == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized request"))
			c.Abort()
			return
		}

		claims, user, err := tokens.Verify(c.Request.Context(), models.KindVerification, candidate)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unauthorized request"))
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func extractToken(c *gin.Context, accessCookieName string) string {
	if cookie, err := c.Cookie(accessCookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
