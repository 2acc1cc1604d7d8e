// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them once per request; services read
// them without importing net/http. Tests inject values directly.
package requestcontext

import (
	"context"
	"time"
)

// Role is the caller's role as asserted by the authentication boundary.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
)

// Identity is the authenticated caller, decoded from the bearer credential.
// The core trusts it as given; credential issuance lives at the edge.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Caller retrieves the authenticated identity from the context. The zero
// Identity means the request was not authenticated.
func Caller(ctx context.Context) Identity {
	if ident, ok := ctx.Value(identityKey{}).(Identity); ok {
		return ident
	}
	return Identity{}
}

// WithCaller injects an identity into the context.
func WithCaller(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time, falling back to time.Now for
// non-HTTP contexts such as workers and tests that don't set it.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request-scoped clock. Tests use this to make ledger
// timestamps deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
