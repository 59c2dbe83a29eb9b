package session

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const idContextKey contextKey = "session_id"

// ID returns the session ID stored in ctx, or "" if there is none.
func ID(ctx context.Context) string {
	id, _ := ctx.Value(idContextKey).(string)
	return id
}

// IDFromRequest is a convenience wrapper around ID.
func IDFromRequest(r *http.Request) string {
	return ID(r.Context())
}

// WithID stores a session ID in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idContextKey, id)
}
