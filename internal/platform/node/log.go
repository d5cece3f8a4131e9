package node

import (
	"context"

	"go.uber.org/zap"
)

const logKey ctxKey = 2

// ContextWithLogger stores a logger on the context for handlers further
// down the call chain.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, logKey, l)
}

// Logger returns the context's logger. Falls back to a no-op logger so call
// sites never need a nil check.
func Logger(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(logKey).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	if v, ok := ctx.Value(KeyValues).(*Values); ok {
		return l.With(zap.String("trace_id", v.TraceID))
	}
	return l
}

// NewDevelopmentLogger builds a console logger for tests and local runs.
func NewDevelopmentLogger() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l
}

// NewProductionLogger builds the structured JSON logger used by the daemon.
func NewProductionLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}
