// Package trace carries a per-request correlation ID through context and onto outgoing headers.
package trace

import (
	"context"
	nethttp "net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// HeaderXRequestID is the header outgoing requests carry the correlation ID in.
	HeaderXRequestID = "X-Request-ID"
)

// WithRequestID returns a child context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the ID from ctx or a freshly generated UUID.
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// Inject sets header name (X-Request-ID when empty) unless the caller already set it,
// and returns the ID in effect.
func Inject(ctx context.Context, h nethttp.Header, name string) string {
	if name == "" {
		name = HeaderXRequestID
	}
	if existing := h.Get(name); existing != "" {
		return existing
	}
	id := EnsureRequestID(ctx)
	h.Set(name, id)
	return id
}
