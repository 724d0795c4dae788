package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, types.DataResponse{
					Status:  false,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}
