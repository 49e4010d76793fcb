package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request logger, else fallback, else a no-op logger.
func FromContext(ctx context.Context, fallback ...*zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return zap.NewNop()
}

// With adds fields to the logger carried by ctx.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return WithContext(ctx, FromContext(ctx).With(fields...))
}
