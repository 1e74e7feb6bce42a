// Package memory implements the account directory as process-lifetime state.
// It is the authoritative backend whenever the durable store is absent or
// failing. Every mutation (including its audit append) runs inside one
// coarse-grained critical section, so the admin-count invariant is never
// observed in a torn state by concurrent callers.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
	"github.com/regionops/rims/internal/policy"
)

// Store is the in-memory account and audit-log store. The zero value is not
// usable; construct with New, which seeds the canonical demo state.
type Store struct {
	mu    sync.Mutex
	users []model.User
	logs  []model.AuditEvent // newest first

	now func() time.Time
}

var _ directory.Directory = (*Store)(nil)

// New creates a Store seeded with the two canonical accounts and their
// bootstrap audit events.
func New() *Store {
	s := &Store{now: time.Now}
	s.users = append(s.users, directory.SeedUsers()...)

	// Bootstrap events are stored newest first like everything else.
	seed := directory.SeedAuditEvents()
	for i := len(seed) - 1; i >= 0; i-- {
		s.logs = append(s.logs, seed[i])
	}
	return s
}

// SetClock overrides the store's time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func newID(prefix string) string {
	return prefix + "_" + uuid.Must(uuid.NewV7()).String()
}

// ListUsers returns a snapshot of all accounts, creation order, secrets
// stripped. Later mutations do not affect the returned slice.
func (s *Store) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PublicUser, len(s.users))
	for i, u := range s.users {
		out[i] = u.Public()
	}
	return out, nil
}

// GetUserByUsername returns the account with the given normalized username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findByUsername(username)
	if u == nil {
		return nil, directory.ErrNotFound
	}
	pub := u.Public()
	return &pub, nil
}

// CreateUser adds a new ACTIVE account and appends a CREATE_USER audit event.
// Validation, the duplicate check, the insert, and the audit append all run
// inside one critical section.
func (s *Store) CreateUser(ctx context.Context, input directory.CreateUserInput, actor model.SessionUser) (*model.PublicUser, error) {
	input, err := policy.ValidateNewAccount(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByUsername(input.Username) != nil {
		return nil, directory.ErrDuplicateUsername
	}

	user := model.User{
		ID:        newID("u"),
		Username:  input.Username,
		Name:      input.Name,
		Password:  input.Password,
		Role:      input.Role,
		Status:    model.StatusActive,
		CreatedAt: s.now().UTC(),
	}
	s.users = append(s.users, user)

	target := user.Username
	s.appendLog(model.AuditEvent{
		Actor:   actor.Username,
		Action:  model.ActionCreateUser,
		Target:  &target,
		Details: fmt.Sprintf("Created %s account.", user.Role),
	})

	pub := user.Public()
	return &pub, nil
}

// UpdateUserRole changes an account's role under the lockout safety checks.
// Setting the current role again is a no-op success with no audit entry.
func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.Role, actor model.SessionUser) (*model.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.findByID(id)
	if user == nil {
		return nil, directory.ErrNotFound
	}

	if user.Role == role {
		pub := user.Public()
		return &pub, nil
	}

	if err := policy.ReviewRoleChange(user.Public(), role, actor, policy.ActiveAdmins(s.users)); err != nil {
		return nil, err
	}

	user.Role = role

	target := user.Username
	s.appendLog(model.AuditEvent{
		Actor:   actor.Username,
		Action:  model.ActionUpdateRole,
		Target:  &target,
		Details: fmt.Sprintf("Role changed to %s.", role),
	})

	pub := user.Public()
	return &pub, nil
}

// DeleteUser removes an account under the lockout safety checks.
func (s *Store) DeleteUser(ctx context.Context, id string, actor model.SessionUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.users {
		if s.users[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return directory.ErrNotFound
	}

	user := s.users[idx]
	if err := policy.ReviewDelete(user.Public(), actor, policy.ActiveAdmins(s.users)); err != nil {
		return err
	}

	s.users = append(s.users[:idx], s.users[idx+1:]...)

	target := user.Username
	s.appendLog(model.AuditEvent{
		Actor:   actor.Username,
		Action:  model.ActionDeleteUser,
		Target:  &target,
		Details: fmt.Sprintf("Deleted %s account.", user.Role),
	})
	return nil
}

// Authenticate verifies credentials, stamps the last login, and appends a
// LOGIN_SUCCESS event. Failed attempts leave no trace in the audit log.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*model.SessionUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.findByUsername(username)
	if user == nil || user.Password != password {
		return nil, directory.ErrInvalidCredentials
	}
	if user.Status != model.StatusActive {
		return nil, directory.ErrInactiveAccount
	}

	now := s.now().UTC()
	user.LastLoginAt = &now

	target := user.Username
	s.appendLog(model.AuditEvent{
		Actor:   user.Username,
		Action:  model.ActionLoginSuccess,
		Target:  &target,
		Details: fmt.Sprintf("%s user authenticated through in-memory session flow.", user.Role),
	})

	session := user.Public().Session()
	return &session, nil
}

// RecordLogout appends a LOGOUT audit event for the session.
func (s *Store) RecordLogout(ctx context.Context, session model.SessionUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := session.Username
	s.appendLog(model.AuditEvent{
		Actor:   session.Username,
		Action:  model.ActionLogout,
		Target:  &target,
		Details: "User ended session.",
	})
	return nil
}

// ListAuditEvents returns a snapshot of the audit trail, newest first. Each
// entry is cloned so writes through the snapshot (including its Target
// pointer) never reach stored history.
func (s *Store) ListAuditEvents(ctx context.Context) ([]model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AuditEvent, len(s.logs))
	for i, e := range s.logs {
		out[i] = e.Clone()
	}
	return out, nil
}

// DashboardSummary returns account and log counts.
func (s *Store) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &model.DashboardSummary{
		TotalUsers: len(s.users),
		LogEntries: len(s.logs),
	}
	for _, u := range s.users {
		switch u.Role {
		case model.RoleAdmin:
			summary.AdminUsers++
		case model.RoleStaff:
			summary.StaffUsers++
		}
	}
	return summary, nil
}

// --- internals; callers hold s.mu ---

func (s *Store) findByUsername(username string) *model.User {
	username = policy.NormalizeUsername(username)
	for i := range s.users {
		if s.users[i].Username == username {
			return &s.users[i]
		}
	}
	return nil
}

func (s *Store) findByID(id string) *model.User {
	for i := range s.users {
		if s.users[i].ID == id {
			return &s.users[i]
		}
	}
	return nil
}

func (s *Store) appendLog(e model.AuditEvent) {
	e.ID = newID("log")
	e.Timestamp = s.now().UTC()
	s.logs = append([]model.AuditEvent{e}, s.logs...)
}
