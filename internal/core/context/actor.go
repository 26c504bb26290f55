// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Actor describes who performed an operation and from where.
// Captured by the HTTP layer and stamped onto every ledger entry
// as audit metadata.
type Actor struct {
	UserID    string
	Role      string
	IPAddress string
	UserAgent string
	SessionID string
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context, or nil.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetUserID returns the acting user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.UserID
	}
	return ""
}

// GetUserRole returns the acting user's role from context or empty string.
func GetUserRole(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.Role
	}
	return ""
}
