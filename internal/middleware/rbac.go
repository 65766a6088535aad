package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tracekit/harbox-api/internal/models"
	appErrors "github.com/tracekit/harbox-api/pkg/errors"
	"github.com/tracekit/harbox-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. It expects Auth
// to have run earlier in the chain.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextClaimsKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.TokenClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
