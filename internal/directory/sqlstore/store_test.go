package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New("sqlite", filepath.Join(t.TempDir(), "rims.db"), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAdmin(t *testing.T, s *Store) model.SessionUser {
	t.Helper()
	user, err := s.GetUserByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	return user.Session()
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New("oracle", "dsn", discardLogger()); err == nil {
		t.Error("New(oracle) succeeded, want error")
	}
}

func TestRowLockingByDriver(t *testing.T) {
	// postgres and mysql need FOR UPDATE on the admin-count rows; sqlite has
	// no FOR UPDATE and relies on its single connection for serialization.
	cases := []struct {
		name string
		want bool
	}{
		{"pgx", true},
		{"mysql", true},
		{"sqlite", false},
	}
	for _, tc := range cases {
		if got := lockingDriver(tc.name); got != tc.want {
			t.Errorf("lockingDriver(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}

	s := newTestStore(t)
	if s.rowLocks {
		t.Error("sqlite store configured with row locks")
	}
}

func TestConcurrentDemotionPreservesLastAdmin(t *testing.T) {
	// With exactly two active admins, concurrent demotions must not both
	// commit: the admin-count check runs inside the mutation transaction.
	s := newTestStore(t)
	ctx := context.Background()
	root := testAdmin(t, s)

	second, err := s.CreateUser(ctx, directory.CreateUserInput{
		Username: "second", Name: "Second", Password: "pw", Role: model.RoleAdmin,
	}, root)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	actor := model.SessionUser{ID: "u_ext", Username: "external", Name: "External", Role: model.RoleAdmin}
	targets := []string{"u_admin_001", second.ID}
	results := make([]error, len(targets))

	var wg sync.WaitGroup
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.UpdateUserRole(ctx, targets[i], model.RoleStaff, actor)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, directory.ErrLastAdmin) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("concurrent demotions succeeded = %d, want exactly 1", succeeded)
	}

	summary, err := s.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if summary.AdminUsers != 1 {
		t.Errorf("active admins after race = %d, want 1", summary.AdminUsers)
	}
}

func TestSeedOnFirstUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("seeded user count = %d, want 2", len(users))
	}

	logs, err := s.ListAuditEvents(ctx)
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("seeded log count = %d, want 2", len(logs))
	}
	if logs[0].ID != "log_seed_002" {
		t.Errorf("newest seed log = %s, want log_seed_002", logs[0].ID)
	}
}

func TestSeedIsIdempotentAcrossReopens(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rims.db")
	ctx := context.Background()

	first, err := New("sqlite", dsn, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := first.ListUsers(ctx); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	first.Close()

	// A fresh process against the same file must not duplicate the seed rows.
	second, err := New("sqlite", dsn, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	users, err := second.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers after reopen: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("user count after reopen = %d, want 2", len(users))
	}
	logs, _ := second.ListAuditEvents(ctx)
	if len(logs) != 2 {
		t.Errorf("log count after reopen = %d, want 2", len(logs))
	}
}

func TestAuthenticateStampsLastLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}

	session, err := s.Authenticate(ctx, "ADMIN", "admin123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.ID != "u_admin_001" {
		t.Errorf("session id = %s, want u_admin_001", session.ID)
	}

	after, _ := s.GetUserByUsername(ctx, "admin")
	if after.LastLoginAt == nil {
		t.Fatal("last login not stamped")
	}
	if before.LastLoginAt != nil && !after.LastLoginAt.After(*before.LastLoginAt) {
		t.Error("last login did not advance")
	}

	logs, _ := s.ListAuditEvents(ctx)
	if logs[0].Action != model.ActionLoginSuccess {
		t.Errorf("newest log action = %s, want LOGIN_SUCCESS", logs[0].Action)
	}
}

func TestAuthenticateFailuresWriteNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Authenticate(ctx, "admin", "wrong"); !errors.Is(err, directory.ErrInvalidCredentials) {
		t.Errorf("wrong password: %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Authenticate(ctx, "ghost", "pw"); !errors.Is(err, directory.ErrInvalidCredentials) {
		t.Errorf("unknown user: %v, want ErrInvalidCredentials", err)
	}

	logs, _ := s.ListAuditEvents(ctx)
	if len(logs) != 2 {
		t.Errorf("log count after failed logins = %d, want 2", len(logs))
	}
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	actor := testAdmin(t, s)

	user, err := s.CreateUser(ctx, directory.CreateUserInput{
		Username: "  Carol ", Name: "Carol Ops", Password: "pw", Role: model.RoleStaff,
	}, actor)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "carol" {
		t.Errorf("username = %q, want normalized %q", user.Username, "carol")
	}
	if user.Status != model.StatusActive {
		t.Errorf("status = %s, want ACTIVE", user.Status)
	}

	_, err = s.CreateUser(ctx, directory.CreateUserInput{
		Username: "carol", Name: "x", Password: "x", Role: model.RoleStaff,
	}, actor)
	if !errors.Is(err, directory.ErrDuplicateUsername) {
		t.Errorf("duplicate create: %v, want ErrDuplicateUsername", err)
	}

	_, err = s.CreateUser(ctx, directory.CreateUserInput{
		Username: "dave", Name: "Dave", Password: "pw", Role: "ROOT",
	}, actor)
	if !errors.Is(err, directory.ErrInvalidInput) {
		t.Errorf("bad role: %v, want ErrInvalidInput", err)
	}

	logs, _ := s.ListAuditEvents(ctx)
	if logs[0].Action != model.ActionCreateUser || logs[0].Actor != actor.Username {
		t.Errorf("newest log = %s by %s, want CREATE_USER by %s", logs[0].Action, logs[0].Actor, actor.Username)
	}
}

func TestRoleChangeInvariants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := testAdmin(t, s)

	// The seeded store has exactly one active admin.
	if _, err := s.UpdateUserRole(ctx, "u_admin_001", model.RoleStaff, root); !errors.Is(err, directory.ErrSelfLockout) {
		t.Errorf("self demotion: %v, want ErrSelfLockout", err)
	}

	other := model.SessionUser{ID: "u_other", Username: "other", Name: "Other", Role: model.RoleAdmin}
	if _, err := s.UpdateUserRole(ctx, "u_admin_001", model.RoleStaff, other); !errors.Is(err, directory.ErrLastAdmin) {
		t.Errorf("demote sole admin: %v, want ErrLastAdmin", err)
	}

	if _, err := s.UpdateUserRole(ctx, "u_missing", model.RoleAdmin, root); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("missing target: %v, want ErrNotFound", err)
	}

	// Same role is a no-op: no error, no audit entry.
	before, _ := s.ListAuditEvents(ctx)
	if _, err := s.UpdateUserRole(ctx, "u_admin_001", model.RoleAdmin, root); err != nil {
		t.Fatalf("no-op role change: %v", err)
	}
	after, _ := s.ListAuditEvents(ctx)
	if len(after) != len(before) {
		t.Error("no-op role change appended an audit event")
	}

	// With a second admin the demotion goes through.
	if _, err := s.CreateUser(ctx, directory.CreateUserInput{
		Username: "carol", Name: "Carol", Password: "pw", Role: model.RoleAdmin,
	}, root); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	updated, err := s.UpdateUserRole(ctx, "u_admin_001", model.RoleStaff, other)
	if err != nil {
		t.Fatalf("demote with spare admin: %v", err)
	}
	if updated.Role != model.RoleStaff {
		t.Errorf("role = %s, want STAFF", updated.Role)
	}
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root := testAdmin(t, s)

	if err := s.DeleteUser(ctx, "u_admin_001", root); !errors.Is(err, directory.ErrSelfDelete) {
		t.Errorf("self delete: %v, want ErrSelfDelete", err)
	}

	other := model.SessionUser{ID: "u_other", Username: "other", Name: "Other", Role: model.RoleAdmin}
	if err := s.DeleteUser(ctx, "u_admin_001", other); !errors.Is(err, directory.ErrLastAdmin) {
		t.Errorf("delete sole admin: %v, want ErrLastAdmin", err)
	}

	if err := s.DeleteUser(ctx, "u_staff_001", root); err != nil {
		t.Fatalf("delete staff: %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "staff"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("deleted user lookup: %v, want ErrNotFound", err)
	}

	logs, _ := s.ListAuditEvents(ctx)
	if logs[0].Action != model.ActionDeleteUser {
		t.Errorf("newest log action = %s, want DELETE_USER", logs[0].Action)
	}
}

func TestDashboardSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	summary, err := s.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if summary.TotalUsers != 2 || summary.AdminUsers != 1 || summary.StaffUsers != 1 || summary.LogEntries != 2 {
		t.Errorf("summary = %+v, want 2/1/1/2", summary)
	}
}

func TestClosedBackendIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Seed while healthy, then sever the backend.
	if _, err := s.ListUsers(ctx); err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	s.Close()

	if _, err := s.ListUsers(ctx); !errors.Is(err, directory.ErrUnavailable) {
		t.Errorf("ListUsers on closed store: %v, want ErrUnavailable", err)
	}
	if _, err := s.GetUserByUsername(ctx, "admin"); !errors.Is(err, directory.ErrUnavailable) {
		t.Errorf("GetUserByUsername on closed store: %v, want ErrUnavailable", err)
	}
	if _, err := s.Authenticate(ctx, "admin", "admin123"); !errors.Is(err, directory.ErrUnavailable) {
		t.Errorf("Authenticate on closed store: %v, want ErrUnavailable", err)
	}
	if _, err := s.ListAuditEvents(ctx); !errors.Is(err, directory.ErrUnavailable) {
		t.Errorf("ListAuditEvents on closed store: %v, want ErrUnavailable", err)
	}
}
