package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

// RequireRoles admits only callers whose token variant is one of roles. It must run after JWT.
func RequireRoles(roles ...models.OfficialRole) gin.HandlerFunc {
	allowed := make(map[models.OfficialRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		switch {
		case claims == nil:
			challenge(c, appErrors.ErrUnauthorized)
		case !allowed[claims.Role]:
			abort(c, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not perform this action", claims.Role)))
		default:
			c.Next()
		}
	}
}
