package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/logger"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

// ContextClaimsKey is the gin context key storing verified JWT claims.
const ContextClaimsKey = "currentOfficial"

const bearerChallenge = `Bearer realm="dakpad"`

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT admits requests carrying a valid bearer access token and stores its claims.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			challenge(c, appErrors.Clone(appErrors.ErrUnauthorized, "bearer token required"))
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			challenge(c, err)
			return
		}
		c.Set(ContextClaimsKey, claims)
		c.Set(logger.ActorRoleKey, string(claims.Role))
		c.Next()
	}
}

// Claims returns the verified claims stored by JWT, or nil.
func Claims(c *gin.Context) *models.JWTClaims {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*models.JWTClaims)
	return claims
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func challenge(c *gin.Context, err error) {
	c.Header("WWW-Authenticate", bearerChallenge)
	abort(c, err)
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
