package models

import "strings"

// Role is the role a user holds inside an organization.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleEditor    Role = "EDITOR"
	RoleMember    Role = "MEMBER"
	RoleViewer    Role = "VIEWER"
)

// roleHierarchy is ordered from most to least privileged.
var roleHierarchy = [...]Role{
	RoleOwner,
	RoleAdmin,
	RoleModerator,
	RoleEditor,
	RoleMember,
	RoleViewer,
}

// Roles returns the known roles, most privileged first.
func Roles() []Role {
	roles := make([]Role, len(roleHierarchy))
	copy(roles, roleHierarchy[:])
	return roles
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	return role, rank(role) >= 0
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return rank(r) >= 0
}

// HasPrivilege reports whether role ranks at or above required.
// Unknown roles never have privilege.
func HasPrivilege(role, required Role) bool {
	have, need := rank(role), rank(required)
	if have < 0 || need < 0 {
		return false
	}
	return have <= need
}

// ContainsRole reports whether role is one of allowed.
func ContainsRole(allowed []Role, role Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func rank(r Role) int {
	for i, candidate := range roleHierarchy {
		if candidate == r {
			return i
		}
	}
	return -1
}
