// Package policy holds the pure authorization decision functions. They hold
// no state: every check is evaluated against a snapshot supplied by the
// caller, and the backends re-run them inside their own critical section so
// the admin-count invariant cannot be torn by concurrent mutations.
//
// The checks exist to prevent an administrative lockout state the system has
// no recovery path from: at least one ACTIVE admin must remain at all times,
// and an actor can neither demote nor delete themselves out of admin access.
package policy

import (
	"strings"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
)

// IsAdmin reports whether the role grants account-management access.
func IsAdmin(role model.Role) bool {
	return role == model.RoleAdmin
}

// RoleLabel returns the human-readable label for a role.
func RoleLabel(role model.Role) string {
	if role == model.RoleAdmin {
		return "Administrator"
	}
	return "Staff"
}

// NormalizeUsername trims and lowercases a username. All uniqueness checks
// and lookups run over the normalized form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateNewAccount normalizes and validates the fields for a new account.
// Returns ErrInvalidInput when any field normalizes to empty or the role is
// unknown. Duplicate detection is left to the backend, which must check it
// atomically with the insert.
func ValidateNewAccount(input directory.CreateUserInput) (directory.CreateUserInput, error) {
	normalized := directory.CreateUserInput{
		Username: NormalizeUsername(input.Username),
		Name:     strings.TrimSpace(input.Name),
		Password: strings.TrimSpace(input.Password),
		Role:     input.Role,
	}
	if normalized.Username == "" || normalized.Name == "" || normalized.Password == "" {
		return directory.CreateUserInput{}, directory.ErrInvalidInput
	}
	if !normalized.Role.Valid() {
		return directory.CreateUserInput{}, directory.ErrInvalidInput
	}
	return normalized, nil
}

// ReviewRoleChange decides whether actor may set target's role to newRole.
// activeAdmins is the current count of ACTIVE admin accounts. Changing a role
// to its current value is always approved; the backend treats it as a no-op.
func ReviewRoleChange(target model.PublicUser, newRole model.Role, actor model.SessionUser, activeAdmins int) error {
	if target.Role == newRole {
		return nil
	}
	if target.Username == actor.Username && newRole != model.RoleAdmin {
		return directory.ErrSelfLockout
	}
	if newRole != model.RoleAdmin && isActiveAdmin(target) && activeAdmins <= 1 {
		return directory.ErrLastAdmin
	}
	return nil
}

// ReviewDelete decides whether actor may delete target.
func ReviewDelete(target model.PublicUser, actor model.SessionUser, activeAdmins int) error {
	if target.Username == actor.Username {
		return directory.ErrSelfDelete
	}
	if isActiveAdmin(target) && activeAdmins <= 1 {
		return directory.ErrLastAdmin
	}
	return nil
}

// ActiveAdmins counts the ACTIVE admin accounts in users.
func ActiveAdmins(users []model.User) int {
	n := 0
	for _, u := range users {
		if u.Role == model.RoleAdmin && u.Status == model.StatusActive {
			n++
		}
	}
	return n
}

func isActiveAdmin(u model.PublicUser) bool {
	return u.Role == model.RoleAdmin && u.Status == model.StatusActive
}
