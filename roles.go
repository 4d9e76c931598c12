package auth

import "fmt"

// UserRole is the user's role tag
type UserRole = string

const (
	// RoleUser is the default role for registered accounts
	RoleUser UserRole = "user"
	// RoleAdmin can read and manage other accounts
	RoleAdmin UserRole = "admin"
)

// Rights granted to roles and required by routes
const (
	RightGetUsers    = "getUsers"
	RightManageUsers = "manageUsers"
)

// roleRights is the static role to rights table. It is built once, validated
// against the role enum at package init, and never mutated afterwards, so it
// is safe for concurrent reads.
var roleRights = map[UserRole][]string{
	RoleUser:  {},
	RoleAdmin: {RightGetUsers, RightManageUsers},
}

func init() {
	if err := validateRoleRights(); err != nil {
		panic(err)
	}
}

func validateRoleRights() error {
	for _, role := range AllRoles() {
		if _, ok := roleRights[role]; !ok {
			return fmt.Errorf("auth: role %q missing from rights table", role)
		}
	}
	for role := range roleRights {
		if !IsValidRole(role) {
			return fmt.Errorf("auth: rights table contains unknown role %q", role)
		}
	}
	return nil
}

// AllRoles returns the closed set of valid roles
func AllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}

// ParseRole safely parses a string into a UserRole
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// RightsForRole returns the rights granted to a role. The second return is
// false for roles outside the enum.
func RightsForRole(role string) ([]string, bool) {
	rights, ok := roleRights[UserRole(role)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(rights))
	copy(out, rights)
	return out, true
}

// RoleHasRights reports whether the role's granted rights are a superset of
// the required rights
func RoleHasRights(role string, required ...string) bool {
	rights, ok := roleRights[UserRole(role)]
	if !ok {
		return false
	}

	granted := make(map[string]struct{}, len(rights))
	for _, r := range rights {
		granted[r] = struct{}{}
	}

	for _, req := range required {
		if _, ok := granted[req]; !ok {
			return false
		}
	}
	return true
}
