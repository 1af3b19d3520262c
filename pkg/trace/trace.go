package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// HeaderName is the HTTP header carrying the trace id between services.
const HeaderName = "X-Trace-ID"

// GenerateTraceID returns a new random trace id.
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext returns the trace id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext stores traceID in ctx.
func WithContext(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// Ensure returns ctx carrying a trace id, generating one when absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if traceID := FromContext(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := GenerateTraceID()
	return WithContext(ctx, traceID), traceID
}
