package policy

import (
	"errors"
	"testing"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
)

func pubUser(username string, role model.Role) model.PublicUser {
	return model.PublicUser{
		ID:       "u_" + username,
		Username: username,
		Name:     username,
		Role:     role,
		Status:   model.StatusActive,
	}
}

func sessionFor(username string, role model.Role) model.SessionUser {
	return model.SessionUser{ID: "u_" + username, Username: username, Name: username, Role: role}
}

func TestReviewRoleChange(t *testing.T) {
	alice := pubUser("alice", model.RoleAdmin)
	bob := sessionFor("bob", model.RoleAdmin)

	tests := []struct {
		name         string
		target       model.PublicUser
		newRole      model.Role
		actor        model.SessionUser
		activeAdmins int
		wantErr      error
	}{
		{"same role is a no-op", alice, model.RoleAdmin, bob, 1, nil},
		{"self demotion rejected", alice, model.RoleStaff, sessionFor("alice", model.RoleAdmin), 2, directory.ErrSelfLockout},
		{"demoting sole admin rejected", alice, model.RoleStaff, bob, 1, directory.ErrLastAdmin},
		{"demotion allowed with second admin", alice, model.RoleStaff, bob, 2, nil},
		{"promoting staff allowed", pubUser("dave", model.RoleStaff), model.RoleAdmin, bob, 1, nil},
		{"self promotion to admin allowed", pubUser("alice", model.RoleStaff), model.RoleAdmin, sessionFor("alice", model.RoleStaff), 1, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ReviewRoleChange(tc.target, tc.newRole, tc.actor, tc.activeAdmins)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ReviewRoleChange() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestReviewRoleChangeDisabledAdminDoesNotBlock(t *testing.T) {
	// A DISABLED admin is not protected by the last-admin rule; only ACTIVE
	// admins count toward the invariant.
	disabled := pubUser("ghost", model.RoleAdmin)
	disabled.Status = model.StatusDisabled

	err := ReviewRoleChange(disabled, model.RoleStaff, sessionFor("bob", model.RoleAdmin), 1)
	if err != nil {
		t.Errorf("ReviewRoleChange(disabled admin) = %v, want nil", err)
	}
}

func TestReviewDelete(t *testing.T) {
	alice := pubUser("alice", model.RoleAdmin)
	bob := sessionFor("bob", model.RoleAdmin)

	tests := []struct {
		name         string
		target       model.PublicUser
		actor        model.SessionUser
		activeAdmins int
		wantErr      error
	}{
		{"self delete rejected", alice, sessionFor("alice", model.RoleAdmin), 2, directory.ErrSelfDelete},
		{"deleting sole admin rejected", alice, bob, 1, directory.ErrLastAdmin},
		{"deleting admin with spare allowed", alice, bob, 2, nil},
		{"deleting staff always allowed", pubUser("dave", model.RoleStaff), bob, 1, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ReviewDelete(tc.target, tc.actor, tc.activeAdmins)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ReviewDelete() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateNewAccount(t *testing.T) {
	tests := []struct {
		name    string
		input   directory.CreateUserInput
		wantErr error
	}{
		{"valid", directory.CreateUserInput{Username: "carol", Name: "Carol", Password: "pw", Role: model.RoleStaff}, nil},
		{"empty username", directory.CreateUserInput{Username: "  ", Name: "Carol", Password: "pw", Role: model.RoleStaff}, directory.ErrInvalidInput},
		{"empty name", directory.CreateUserInput{Username: "carol", Name: " ", Password: "pw", Role: model.RoleStaff}, directory.ErrInvalidInput},
		{"empty password", directory.CreateUserInput{Username: "carol", Name: "Carol", Password: "   ", Role: model.RoleStaff}, directory.ErrInvalidInput},
		{"bad role", directory.CreateUserInput{Username: "carol", Name: "Carol", Password: "pw", Role: "ROOT"}, directory.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateNewAccount(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateNewAccount() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateNewAccountNormalizes(t *testing.T) {
	got, err := ValidateNewAccount(directory.CreateUserInput{
		Username: "  CaRoL  ",
		Name:     "  Carol Ops  ",
		Password: " secret ",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("ValidateNewAccount() error: %v", err)
	}
	if got.Username != "carol" {
		t.Errorf("Username = %q, want %q", got.Username, "carol")
	}
	if got.Name != "Carol Ops" {
		t.Errorf("Name = %q, want %q", got.Name, "Carol Ops")
	}
	if got.Password != "secret" {
		t.Errorf("Password = %q, want %q", got.Password, "secret")
	}
}

func TestActiveAdmins(t *testing.T) {
	users := []model.User{
		{Role: model.RoleAdmin, Status: model.StatusActive},
		{Role: model.RoleAdmin, Status: model.StatusDisabled},
		{Role: model.RoleStaff, Status: model.StatusActive},
	}
	if got := ActiveAdmins(users); got != 1 {
		t.Errorf("ActiveAdmins() = %d, want 1", got)
	}
}

func TestIsAdmin(t *testing.T) {
	if !IsAdmin(model.RoleAdmin) {
		t.Error("IsAdmin(ADMIN) = false")
	}
	if IsAdmin(model.RoleStaff) {
		t.Error("IsAdmin(STAFF) = true")
	}
}
