package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wedding/guesthub/internal/service"
	"wedding/guesthub/pkg/response"
)

// Recovery turns a handler panic into a 500 envelope. The log line names the
// route and, when known, the calling account.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := []zap.Field{
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.Stack("stack"),
			}
			if p, ok := service.PrincipalFrom(c.Request.Context()); ok {
				fields = append(fields, zap.String("account_id", p.AccountID.String()))
			}
			logger.Error("handler panicked", fields...)

			if !c.Writer.Written() {
				response.InternalError(c, "internal server error")
			}
			c.Abort()
		}()
		c.Next()
	}
}
