// Package identity describes the authenticated caller of an operation.
package identity

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Role grants access to groups of operations.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RoleMember    Role = "MEMBER"
)

// ParseRole returns the role for s, or false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return r, true
	}
	return "", false
}

// Identity is a verified caller.
type Identity struct {
	MemberID uuid.UUID
	Email    string
	Role     Role
}

// HasRole reports whether the caller holds any of roles.
func (i Identity) HasRole(roles ...Role) bool {
	return slices.Contains(roles, i.Role)
}

// IsStaff reports whether the caller works the circulation desk.
func (i Identity) IsStaff() bool {
	return i.HasRole(RoleAdmin, RoleLibrarian)
}

// CanActFor reports whether the caller may act on memberID's records.
// Staff act for anyone, members only for themselves.
func (i Identity) CanActFor(memberID uuid.UUID) bool {
	return i.IsStaff() || i.MemberID == memberID
}

type contextKey struct{}

// WithIdentity attaches the caller to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
