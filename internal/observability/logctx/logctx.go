// Package logctx threads a request-scoped logger through the context so HTTP
// handlers, use cases, and event handlers all log with the same correlation
// fields (request_id, route).
package logctx

import (
	"context"

	"github.com/pivend/vend/internal/observability"
)

type loggerKey struct{}

// With attaches logger to ctx. A nil ctx or logger is returned unchanged.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the logger attached to ctx, or nil when none is present.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr prefers the context logger and falls back to the component's own.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}
