package models

import "github.com/golang-jwt/jwt/v5"

// UserRole scopes what a session may see and how submissions reconcile.
type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleCenterAdmin UserRole = "center_admin"
	RoleTeacher     UserRole = "teacher"
	RoleParent      UserRole = "parent"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCenterAdmin, RoleTeacher, RoleParent:
		return true
	default:
		return false
	}
}

// Session identifies the acting user for the duration of one request chain.
// It is passed explicitly into every gateway call, never read from ambient
// globals. Token is the raw bearer token forwarded upstream.
type Session struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	CenterID string   `json:"center_id,omitempty"`
	Token    string   `json:"-"`
}

// SessionClaims is the JWT payload issued by the upstream auth service. This
// service only decodes it; issuing and refreshing stay upstream.
type SessionClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	CenterID string   `json:"center_id,omitempty"`
	jwt.RegisteredClaims
}
