package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// TraceIDContextKey is the context key for the run-scoped trace ID.
const TraceIDContextKey contextKey = "trace_id"

// NewTraceID generates a fresh trace identifier for a run.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID returns a context carrying the given trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID extracts the trace ID from context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(TraceIDContextKey).(string); ok {
		return v
	}
	return ""
}
