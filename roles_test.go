package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-auth-server"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  auth.UserRole
		valid bool
	}{
		{"user", auth.RoleUser, true},
		{"admin", auth.RoleAdmin, true},
		{"superadmin", "superadmin", false},
		{"", "", false},
		{"Admin", "Admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := auth.ParseRole(tt.input)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range auth.AllRoles() {
		assert.True(t, auth.IsValidRole(role))
	}
	assert.False(t, auth.IsValidRole("root"))
	assert.False(t, auth.IsValidRole(""))
}

func TestRightsForRole(t *testing.T) {
	t.Run("admin has user management rights", func(t *testing.T) {
		rights, ok := auth.RightsForRole(auth.RoleAdmin)
		assert.True(t, ok)
		assert.Contains(t, rights, auth.RightGetUsers)
		assert.Contains(t, rights, auth.RightManageUsers)
	})

	t.Run("user has no rights", func(t *testing.T) {
		rights, ok := auth.RightsForRole(auth.RoleUser)
		assert.True(t, ok)
		assert.Empty(t, rights)
	})

	t.Run("unknown role has no rights", func(t *testing.T) {
		rights, ok := auth.RightsForRole("root")
		assert.False(t, ok)
		assert.Nil(t, rights)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		rights, _ := auth.RightsForRole(auth.RoleAdmin)
		for i := range rights {
			rights[i] = "mutated"
		}

		fresh, _ := auth.RightsForRole(auth.RoleAdmin)
		assert.Contains(t, fresh, auth.RightGetUsers)
	})
}

func TestRoleHasRights(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		required []string
		want     bool
	}{
		{"admin can read users", auth.RoleAdmin, []string{auth.RightGetUsers}, true},
		{"admin can manage users", auth.RoleAdmin, []string{auth.RightManageUsers}, true},
		{"admin can do both", auth.RoleAdmin, []string{auth.RightGetUsers, auth.RightManageUsers}, true},
		{"user cannot read users", auth.RoleUser, []string{auth.RightGetUsers}, false},
		{"user with no requirement", auth.RoleUser, nil, true},
		{"admin with no requirement", auth.RoleAdmin, nil, true},
		{"unknown role always fails", "root", nil, false},
		{"unknown right fails", auth.RoleAdmin, []string{"launchMissiles"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.RoleHasRights(tt.role, tt.required...))
		})
	}
}
