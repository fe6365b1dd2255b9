package middleware

import (
	"burrow/internal/identity"

	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// ResolveIdentity 每个请求推导一次身份，不落盘
func ResolveIdentity(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(IdentityKey, resolver.Resolve(c.Request))
		c.Next()
	}
}

// GetIdentity 中间件未运行时返回零值，空字符串同样是合法的身份键
func GetIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	return identity.Identity{}
}
