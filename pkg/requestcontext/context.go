// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values and services read them back without importing
// net/http, which keeps the sync and reconciliation paths usable from workers
// and tests as well as from the webhook endpoint.
//
// Usage in services (read values):
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	deliveryIDKey  struct{}
	requestTimeKey struct{}
)

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// DeliveryID retrieves the webhook delivery ID from the context. Set by the
// webhook endpoint so the reconciler can tag emitted events.
func DeliveryID(ctx context.Context) string {
	if id, ok := ctx.Value(deliveryIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithDeliveryID injects a webhook delivery ID into the context.
func WithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	return context.WithValue(ctx, deliveryIDKey{}, deliveryID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts such as workers and tests that do not
// pin a clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that do not run the HTTP middleware chain and for batch workers that
// want one consistent timestamp per run.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
