package logger

import (
	"context"
)

// Logger defines the interface for structured logging.
// All log methods accept a message string followed by key-value pairs for structured fields.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With creates a child logger with additional key-value pairs that will be
	// included in all subsequent log entries
	With(args ...any) Logger

	// WithContext creates a child logger carrying the query id and trace id found in ctx
	WithContext(ctx context.Context) Logger
}

type queryIDKey struct{}

// ContextWithQueryID returns a context carrying the id of the query being executed.
func ContextWithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey{}, id)
}

// QueryIDFromContext returns the query id stored in ctx, or "".
func QueryIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(queryIDKey{}).(string)
	return id
}
