// Package auth resolves callers to identities: bcrypt password hashing,
// signed bearer tokens and the signup/login flows built on them.
package auth

import (
	"context"

	"github.com/xenking/tastetrack/internal/domain/user"
)

// Identity is the authenticated caller as seen by the domain services.
type Identity struct {
	UserID int64
	Email  string
	Role   user.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
