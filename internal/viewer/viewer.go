// Package viewer resolves the identity and role of the caller once per request.
package viewer

import "strings"

// Role is the normalised role claim of a caller.
type Role string

// Recognised roles.
const (
	RoleLecturer Role = "lecturer"
	RoleStudent  Role = "student"
)

// Viewer is the resolved identity of the current caller. The zero value is the
// anonymous viewer, which is also the most restrictive one.
type Viewer struct {
	ID    uint
	Role  Role
	Email string
}

// Anonymous returns the viewer used when no valid credential was presented.
func Anonymous() Viewer {
	return Viewer{}
}

// New builds a viewer from an identity and a raw role claim.
func New(id uint, role string, email string) Viewer {
	return Viewer{
		ID:    id,
		Role:  Role(strings.ToLower(strings.TrimSpace(role))),
		Email: strings.TrimSpace(email),
	}
}

// Authenticated reports whether a verified credential identified the caller.
func (v Viewer) Authenticated() bool {
	return v.ID != 0
}

// IsLecturer reports whether answer keys may be revealed and lecturer-only writes allowed.
func (v Viewer) IsLecturer() bool {
	return v.Authenticated() && v.Role == RoleLecturer
}

// IsStudent reports whether the caller is an authenticated student.
func (v Viewer) IsStudent() bool {
	return v.Authenticated() && v.Role == RoleStudent
}

// RoleName returns the role for logging; anonymous callers are reported as "anonymous".
func (v Viewer) RoleName() string {
	if !v.Authenticated() {
		return "anonymous"
	}
	if v.Role == "" {
		return "unknown"
	}
	return string(v.Role)
}
