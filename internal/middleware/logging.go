package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"burrow/internal/identity"
	"burrow/internal/metrics"
	"burrow/internal/utils"

	"github.com/gin-gonic/gin"
)

// Logging 把带 request_id 的 logger 放进请求上下文，请求结束记一行。
// 地址和指纹只记前缀。
func Logging(l *slog.Logger) gin.HandlerFunc {
	if l == nil {
		l = slog.Default()
	}
	return func(c *gin.Context) {
		reqLogger := l
		if rid := GetRequestID(c); rid != "" {
			reqLogger = reqLogger.With(slog.String("request_id", rid))
		}
		c.Request = c.Request.WithContext(utils.WithLogger(c.Request.Context(), reqLogger))

		start := time.Now()
		c.Next()
		dur := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(dur.Seconds())

		id := GetIdentity(c)
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("dur", dur),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("addr", identity.Short(id.AddressHash)),
			slog.String("fp", identity.Short(id.Fingerprint)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		reqLogger.LogAttrs(c.Request.Context(), slog.LevelInfo, "http", attrs...)
	}
}
