package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// APIError JSON 错误格式
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`

	// Input 校验失败时回显的表单值
	Input map[string]string `json:"input,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WantsJSON API 客户端：Accept 带 json 或者是 /api/ 下的路由
func WantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// AbortWithError 中间件里没有模板可用，HTML 客户端收到纯文本
func AbortWithError(c *gin.Context, status int, code, message string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(status, ErrorResponse{Error: APIError{
			Code:      code,
			Message:   message,
			RequestID: GetRequestID(c),
		}})
		return
	}
	c.Abort()
	c.String(status, message)
}
