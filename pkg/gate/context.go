package gate

import (
	"context"
	"log/slog"
)

type executionIDKey struct{}

func withExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionIDKey{}, id)
}

// ExecutionID returns the ID of the admitted execution ctx belongs to, or ""
// outside of one. Rejection events and log records carry the same ID.
func ExecutionID(ctx context.Context) string {
	id, _ := ctx.Value(executionIDKey{}).(string)
	return id
}

// LogAttr adds the execution ID to log records. It has the shape of
// logger.ContextExtractor.
func LogAttr(ctx context.Context) (slog.Attr, bool) {
	if id := ExecutionID(ctx); id != "" {
		return slog.String("execution_id", id), true
	}
	return slog.Attr{}, false
}
