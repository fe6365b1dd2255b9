package utils

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger 把请求级 logger 放进 context
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Logger 取出 context 中的 logger，没有则返回 slog.Default()
func Logger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
