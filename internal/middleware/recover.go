package middleware

import (
	"net/http"
	"runtime/debug"

	"burrow/internal/utils"

	"github.com/gin-gonic/gin"
)

// Recovery panic 转为 500，堆栈写日志不回给客户端
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				utils.Logger(c.Request.Context()).Error("panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				AbortWithError(c, http.StatusInternalServerError, "internal", "Internal server error")
			}
		}()
		c.Next()
	}
}
