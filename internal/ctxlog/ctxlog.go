// Package ctxlog carries a slog.Logger through a context.Context so
// construction code can log without plumbing a logger parameter
// through every call.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type so this package's context key cannot
// collide with keys from other packages.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. A context
// without a logger yields the process default logger; construction
// code never fails just because nobody configured logging.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
