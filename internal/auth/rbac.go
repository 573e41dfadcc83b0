package auth

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Roles lists every assignable role.
var Roles = []Role{RoleAttendee, RoleOrganizer, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return true
	default:
		return false
	}
}

// NormalizeRole maps free-form input onto a known role. Anything unknown
// becomes an attendee, the least privileged role.
func NormalizeRole(role string) Role {
	candidate := Role(strings.ToLower(strings.TrimSpace(role)))
	if candidate.Valid() {
		return candidate
	}
	return RoleAttendee
}

// ParseRole is the strict counterpart of NormalizeRole.
func ParseRole(role string) (Role, bool) {
	candidate := Role(strings.ToLower(strings.TrimSpace(role)))
	return candidate, candidate.Valid()
}

// Principal is the authenticated (userID, role) pair supplied by the
// identity layer. The domain trusts it as given.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsZero() bool {
	return p.UserID == ""
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// HasRole reports whether the principal holds one of the allowed roles.
func (p Principal) HasRole(allowed ...Role) bool {
	for _, candidate := range allowed {
		if p.Role == candidate {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.IsZero() {
		return Principal{}, false
	}
	return p, true
}
