package middleware

import (
	"github.com/gin-gonic/gin"

	"wedding/guesthub/internal/service"
	"wedding/guesthub/pkg/response"
)

// AdminAuth checks that the authenticated account is in the admin list and
// marks the request principal as privileged. Must be used after JWTAuth.
func AdminAuth(adminUserIDs []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		allowed[id] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := service.PrincipalFrom(c.Request.Context())
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		if _, isAdmin := allowed[p.AccountID.String()]; !isAdmin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}

		p.Admin = true
		c.Request = c.Request.WithContext(service.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}
