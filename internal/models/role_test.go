package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPrivilege(t *testing.T) {
	tests := []struct {
		role     Role
		required Role
		want     bool
	}{
		{RoleOwner, RoleOwner, true},
		{RoleOwner, RoleViewer, true},
		{RoleAdmin, RoleOwner, false},
		{RoleAdmin, RoleModerator, true},
		{RoleEditor, RoleMember, true},
		{RoleMember, RoleEditor, false},
		{RoleViewer, RoleViewer, true},
		{Role("GUEST"), RoleViewer, false},
		{RoleOwner, Role("GUEST"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPrivilege(tt.role, tt.required))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" admin ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)
}

func TestRoles_ReturnsCopy(t *testing.T) {
	roles := Roles()
	assert.Equal(t, RoleOwner, roles[0])
	assert.Equal(t, RoleViewer, roles[len(roles)-1])

	roles[0] = RoleViewer
	assert.Equal(t, RoleOwner, Roles()[0])
}

func TestContainsRole(t *testing.T) {
	allowed := []Role{RoleAdmin, RoleOwner}
	assert.True(t, ContainsRole(allowed, RoleOwner))
	assert.False(t, ContainsRole(allowed, RoleMember))
	assert.False(t, ContainsRole(nil, RoleOwner))
}
