// Package auth carries the verified caller through a request context.
package auth

import (
	"context"

	"github.com/dukerupert/practicum/internal/authn"
)

type contextKey struct{}

type AuthContext struct {
	Credentials authn.Credentials
	SessionID   int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// Credentials returns the caller, or the zero value when unauthenticated.
func Credentials(ctx context.Context) authn.Credentials {
	ac, _ := FromContext(ctx)
	return ac.Credentials
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.Credentials.ID
}

// IsStaff reports whether the caller is an admin or the owner.
func IsStaff(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Credentials.IsStaff()
}

func HasRole(ctx context.Context, roles ...string) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if ac.Credentials.Role == r {
			return true
		}
	}
	return false
}
