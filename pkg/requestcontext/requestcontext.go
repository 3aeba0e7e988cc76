// Package requestcontext holds request-scoped values shared by middleware,
// handlers and services.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey struct{}
	kioskIDKey   struct{}
	clientIPKey  struct{}
	nowKey       struct{}
)

// WithRequestID stores the correlation id for the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id, or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithKioskID stores the kiosk identity established by authentication.
func WithKioskID(ctx context.Context, kioskID string) context.Context {
	return context.WithValue(ctx, kioskIDKey{}, kioskID)
}

// KioskID returns the authenticated kiosk id, or "" when auth is disabled.
func KioskID(ctx context.Context) string {
	if v, ok := ctx.Value(kioskIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientIP stores the caller's address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the caller's address or "unknown".
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithTime pins "now" for the rest of the request.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
