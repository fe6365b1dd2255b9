package middleware

import (
	"net/http"

	"burrow/internal/identity"
	"burrow/internal/services"

	"github.com/gin-gonic/gin"
)

// RateLimit 按身份令牌限流，limiter 为 nil 时放行
func RateLimit(limiter *services.RateLimiter, scheme identity.Scheme, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetIdentity(c).Voter(scheme).Token
		allowed, _ := limiter.Allow(c.Request.Context(), action, key)
		if !allowed {
			c.Header("Retry-After", "60")
			AbortWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, slow down")
			return
		}
		c.Next()
	}
}
