package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"wedding/guesthub/internal/service"
	jwtpkg "wedding/guesthub/pkg/jwt"
	"wedding/guesthub/pkg/response"
)

// JWTAuth validates the bearer token and attaches the caller to the request
// context as a service.Principal.
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != jwtpkg.TokenTypeAccess {
			response.Unauthorized(c, "invalid token type")
			c.Abort()
			return
		}

		accountID, err := claims.AccountID()
		if err != nil {
			response.Unauthorized(c, "invalid account id")
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(service.WithPrincipal(c.Request.Context(), service.Principal{AccountID: accountID}))
		c.Next()
	}
}
