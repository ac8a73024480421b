// Package requestid carries a correlation ID from a state-container action
// down to the outgoing API request.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header the ID travels in.
const Header = "X-Request-ID"

type ctxKey struct{}

// WithRequestID returns a context with the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Lookup returns the request ID stored in ctx, if any.
func Lookup(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// FromContext extracts the request ID from context, or generates a new one.
func FromContext(ctx context.Context) string {
	if id, ok := Lookup(ctx); ok {
		return id
	}
	return uuid.New().String()
}

// New generates a new request ID and returns the enriched context and ID.
func New(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithRequestID(ctx, id), id
}

// Ensure keeps an existing ID or attaches a fresh one, so that an action and
// the follow-up refetch it triggers share one correlation ID.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := Lookup(ctx); ok {
		return ctx, id
	}
	return New(ctx)
}
