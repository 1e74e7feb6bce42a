// Package sqlstore implements the account directory over an external
// relational store via sqlx. Supported drivers: sqlite (modernc, used for
// single-node deployments), postgres (pgx), and mysql.
//
// The adapter never raises infrastructure faults to its callers: any
// connectivity, schema, or driver failure comes back as
// directory.ErrUnavailable, which the fallback orchestrator recovers from. A
// query that legitimately finds nothing returns directory.ErrNotFound instead,
// so "no data" is always distinguishable from "no backend".
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
	"github.com/regionops/rims/internal/policy"
)

// connectTimeout bounds the initial ping so a dead database degrades to
// fallback instead of hanging startup.
const connectTimeout = 5 * time.Second

// Store is the durable directory backend.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger

	// rowLocks is set for drivers that support SELECT ... FOR UPDATE. The
	// last-admin check must lock the admin rows it counts, or two concurrent
	// demotions under read-committed isolation could both observe two admins
	// and leave none. SQLite has no FOR UPDATE and is serialized by its
	// single connection instead.
	rowLocks bool

	seedMu sync.Mutex
	seeded bool
}

var _ directory.Directory = (*Store)(nil)

// driverName maps the configured driver to the registered database/sql name.
func driverName(driver string) (string, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// lockingDriver reports whether the registered driver supports
// SELECT ... FOR UPDATE row locks.
func lockingDriver(name string) bool {
	return name == "pgx" || name == "mysql"
}

// New opens the database, verifies connectivity, and applies migrations.
// A failure here means the durable backend is simply not used; the caller
// falls back to the memory store.
func New(driver, dsn string, logger *slog.Logger) (*Store, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if name == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, logger: logger, rowLocks: lockingDriver(name)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// unavailable records the underlying fault at debug level and returns the
// sentinel. The orchestrator owns the single user-visible warning.
func (s *Store) unavailable(op string, err error) error {
	s.logger.Debug("durable directory operation failed", "op", op, "error", err)
	return directory.ErrUnavailable
}

// ensureSeeded inserts the canonical bootstrap rows into an empty store. The
// guard is never tripped by a failed attempt: the count check and the inserts
// share one transaction, and a unique-constraint conflict (another process
// seeding concurrently) counts as already seeded.
func (s *Store) ensureSeeded(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if s.seeded {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if count == 0 {
		const userQ = `INSERT INTO users (id, username, name, password, role, status, created_at, last_login_at)
			VALUES (:id, :username, :name, :password, :role, :status, :created_at, :last_login_at)`
		for _, u := range directory.SeedUsers() {
			if _, err := tx.NamedExecContext(ctx, userQ, u); err != nil {
				if isUniqueViolation(err) {
					s.seeded = true
					return nil
				}
				return fmt.Errorf("seed user: %w", err)
			}
		}
		for _, e := range directory.SeedAuditEvents() {
			if _, err := tx.NamedExecContext(ctx, insertLogQ, e); err != nil {
				return fmt.Errorf("seed audit event: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	s.seeded = true
	return nil
}

const insertLogQ = `INSERT INTO activity_logs (id, actor, action, target, recorded_at, details)
	VALUES (:id, :actor, :action, :target, :recorded_at, :details)`

// isUniqueViolation reports whether err looks like a unique-constraint
// failure, phrased differently by every driver.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func newID(prefix string) string {
	return prefix + "_" + uuid.Must(uuid.NewV7()).String()
}

// ListUsers returns all accounts, creation-time ascending, secrets stripped.
func (s *Store) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("list users", err)
	}

	var users []model.User
	q := s.db.Rebind("SELECT * FROM users ORDER BY created_at ASC, username ASC")
	if err := s.db.SelectContext(ctx, &users, q); err != nil {
		return nil, s.unavailable("list users", err)
	}

	out := make([]model.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}

// GetUserByUsername returns the account with the given normalized username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.PublicUser, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("get user", err)
	}

	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE username = ?")
	err := s.db.GetContext(ctx, &user, q, policy.NormalizeUsername(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, s.unavailable("get user", err)
	}

	pub := user.Public()
	return &pub, nil
}

// CreateUser validates and inserts a new ACTIVE account. The duplicate check,
// the insert, and the CREATE_USER audit append share one transaction.
func (s *Store) CreateUser(ctx context.Context, input directory.CreateUserInput, actor model.SessionUser) (*model.PublicUser, error) {
	input, err := policy.ValidateNewAccount(input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("create user", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.unavailable("create user", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	q := s.db.Rebind("SELECT COUNT(*) FROM users WHERE username = ?")
	if err := tx.GetContext(ctx, &exists, q, input.Username); err != nil {
		return nil, s.unavailable("create user", err)
	}
	if exists > 0 {
		return nil, directory.ErrDuplicateUsername
	}

	user := model.User{
		ID:        newID("u"),
		Username:  input.Username,
		Name:      input.Name,
		Password:  input.Password,
		Role:      input.Role,
		Status:    model.StatusActive,
		CreatedAt: time.Now().UTC(),
	}

	const insertQ = `INSERT INTO users (id, username, name, password, role, status, created_at, last_login_at)
		VALUES (:id, :username, :name, :password, :role, :status, :created_at, :last_login_at)`
	if _, err := tx.NamedExecContext(ctx, insertQ, user); err != nil {
		if isUniqueViolation(err) {
			return nil, directory.ErrDuplicateUsername
		}
		return nil, s.unavailable("create user", err)
	}

	if err := appendLog(ctx, tx, actor.Username, model.ActionCreateUser, &user.Username,
		fmt.Sprintf("Created %s account.", user.Role)); err != nil {
		return nil, s.unavailable("create user", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.unavailable("create user", err)
	}

	pub := user.Public()
	return &pub, nil
}

// UpdateUserRole changes an account's role under the lockout safety checks.
// The policy review runs inside the same transaction as the mutation so a
// concurrent demotion cannot slip past the admin-count check.
func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.Role, actor model.SessionUser) (*model.PublicUser, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("update role", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.unavailable("update role", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE id = ?")
	err = tx.GetContext(ctx, &user, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, s.unavailable("update role", err)
	}

	if user.Role == role {
		pub := user.Public()
		return &pub, nil
	}

	admins, err := s.activeAdmins(ctx, tx)
	if err != nil {
		return nil, s.unavailable("update role", err)
	}
	if err := policy.ReviewRoleChange(user.Public(), role, actor, admins); err != nil {
		return nil, err
	}

	uq := s.db.Rebind("UPDATE users SET role = ? WHERE id = ?")
	if _, err := tx.ExecContext(ctx, uq, role, id); err != nil {
		return nil, s.unavailable("update role", err)
	}

	if err := appendLog(ctx, tx, actor.Username, model.ActionUpdateRole, &user.Username,
		fmt.Sprintf("Role changed to %s.", role)); err != nil {
		return nil, s.unavailable("update role", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.unavailable("update role", err)
	}

	user.Role = role
	pub := user.Public()
	return &pub, nil
}

// DeleteUser removes an account under the lockout safety checks, with the
// DELETE_USER audit append in the same transaction.
func (s *Store) DeleteUser(ctx context.Context, id string, actor model.SessionUser) error {
	if err := s.ensureSeeded(ctx); err != nil {
		return s.unavailable("delete user", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.unavailable("delete user", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE id = ?")
	err = tx.GetContext(ctx, &user, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.ErrNotFound
	}
	if err != nil {
		return s.unavailable("delete user", err)
	}

	admins, err := s.activeAdmins(ctx, tx)
	if err != nil {
		return s.unavailable("delete user", err)
	}
	if err := policy.ReviewDelete(user.Public(), actor, admins); err != nil {
		return err
	}

	dq := s.db.Rebind("DELETE FROM users WHERE id = ?")
	if _, err := tx.ExecContext(ctx, dq, id); err != nil {
		return s.unavailable("delete user", err)
	}

	if err := appendLog(ctx, tx, actor.Username, model.ActionDeleteUser, &user.Username,
		fmt.Sprintf("Deleted %s account.", user.Role)); err != nil {
		return s.unavailable("delete user", err)
	}

	if err := tx.Commit(); err != nil {
		return s.unavailable("delete user", err)
	}
	return nil
}

// Authenticate verifies credentials, stamps the last login, and appends a
// LOGIN_SUCCESS audit event in the same transaction. Failed attempts write
// nothing.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*model.SessionUser, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("authenticate", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.unavailable("authenticate", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var user model.User
	q := s.db.Rebind("SELECT * FROM users WHERE username = ?")
	err = tx.GetContext(ctx, &user, q, policy.NormalizeUsername(username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.unavailable("authenticate", err)
	}

	if user.Password != password {
		return nil, directory.ErrInvalidCredentials
	}
	if user.Status != model.StatusActive {
		return nil, directory.ErrInactiveAccount
	}

	now := time.Now().UTC()
	uq := s.db.Rebind("UPDATE users SET last_login_at = ? WHERE id = ?")
	if _, err := tx.ExecContext(ctx, uq, now, user.ID); err != nil {
		return nil, s.unavailable("authenticate", err)
	}

	if err := appendLog(ctx, tx, user.Username, model.ActionLoginSuccess, &user.Username,
		fmt.Sprintf("%s user authenticated through database session flow.", user.Role)); err != nil {
		return nil, s.unavailable("authenticate", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.unavailable("authenticate", err)
	}

	session := user.Public().Session()
	return &session, nil
}

// RecordLogout appends a LOGOUT audit event for the session.
func (s *Store) RecordLogout(ctx context.Context, session model.SessionUser) error {
	if err := s.ensureSeeded(ctx); err != nil {
		return s.unavailable("record logout", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.unavailable("record logout", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := appendLog(ctx, tx, session.Username, model.ActionLogout, &session.Username,
		"User ended session."); err != nil {
		return s.unavailable("record logout", err)
	}
	if err := tx.Commit(); err != nil {
		return s.unavailable("record logout", err)
	}
	return nil
}

// ListAuditEvents returns the audit trail newest-first. UUIDv7 ids sort in
// creation order, so the id tiebreak matches reverse insertion order.
func (s *Store) ListAuditEvents(ctx context.Context) ([]model.AuditEvent, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("list audit events", err)
	}

	var events []model.AuditEvent
	q := s.db.Rebind("SELECT * FROM activity_logs ORDER BY recorded_at DESC, id DESC")
	if err := s.db.SelectContext(ctx, &events, q); err != nil {
		return nil, s.unavailable("list audit events", err)
	}
	return events, nil
}

// DashboardSummary returns account and log counts.
func (s *Store) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, s.unavailable("dashboard summary", err)
	}

	summary := &model.DashboardSummary{}
	queries := []struct {
		dst  *int
		q    string
		args []any
	}{
		{&summary.TotalUsers, "SELECT COUNT(*) FROM users", nil},
		{&summary.AdminUsers, s.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ?"), []any{model.RoleAdmin}},
		{&summary.StaffUsers, s.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ?"), []any{model.RoleStaff}},
		{&summary.LogEntries, "SELECT COUNT(*) FROM activity_logs", nil},
	}
	for _, c := range queries {
		if err := s.db.GetContext(ctx, c.dst, c.q, c.args...); err != nil {
			return nil, s.unavailable("dashboard summary", err)
		}
	}
	return summary, nil
}

// --- transaction helpers ---

// activeAdmins counts the ACTIVE admin rows inside tx. Where the driver
// supports it, the rows are locked FOR UPDATE so a concurrent mutation's
// count blocks until this transaction commits; without the lock, two
// demotions of the last two admins could both read 2 and both proceed.
func (s *Store) activeAdmins(ctx context.Context, tx *sqlx.Tx) (int, error) {
	if s.rowLocks {
		var ids []string
		q := s.db.Rebind("SELECT id FROM users WHERE role = ? AND status = ? FOR UPDATE")
		if err := tx.SelectContext(ctx, &ids, q, model.RoleAdmin, model.StatusActive); err != nil {
			return 0, err
		}
		return len(ids), nil
	}

	var n int
	q := s.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ? AND status = ?")
	if err := tx.GetContext(ctx, &n, q, model.RoleAdmin, model.StatusActive); err != nil {
		return 0, err
	}
	return n, nil
}

func appendLog(ctx context.Context, tx *sqlx.Tx, actor string, action model.AuditAction, target *string, details string) error {
	event := model.AuditEvent{
		ID:        newID("log"),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Timestamp: time.Now().UTC(),
		Details:   details,
	}
	_, err := tx.NamedExecContext(ctx, insertLogQ, event)
	return err
}
