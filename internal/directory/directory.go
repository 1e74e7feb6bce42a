// Package directory defines the account-directory contract shared by the
// in-memory and durable backends, together with the fixed error taxonomy the
// backends return. All errors cross the package boundary as values; the HTTP
// layer decides status mapping.
package directory

import (
	"context"
	"errors"

	"github.com/regionops/rims/internal/model"
)

var (
	// ErrInvalidInput means a required field normalized to empty.
	ErrInvalidInput = errors.New("username, name, and password are required")
	// ErrDuplicateUsername means the normalized username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials means the username/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount means the credentials matched a disabled account.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrNotFound means no account matched the given id or username.
	ErrNotFound = errors.New("user not found")
	// ErrSelfLockout means the actor tried to demote their own admin access.
	ErrSelfLockout = errors.New("cannot remove your own admin access")
	// ErrSelfDelete means the actor tried to delete their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
	// ErrLastAdmin means the mutation would leave no active administrator.
	ErrLastAdmin = errors.New("at least one administrator must remain")
	// ErrUnavailable is the internal sentinel a durable backend returns for
	// any infrastructure fault. It triggers fallback and is never surfaced
	// past the orchestrator.
	ErrUnavailable = errors.New("directory backend unavailable")
)

// CreateUserInput carries the raw fields for a new account. Normalization
// (trimming, username lowercasing) happens in the policy layer.
type CreateUserInput struct {
	Username string
	Name     string
	Password string
	Role     model.Role
}

// Directory is the account-storage contract. Two backends implement it: the
// process-lifetime memory store and the sqlx-backed durable store. Every
// mutating operation appends exactly one audit event atomically with the
// mutation (or best-effort serialized where the backend cannot guarantee
// atomicity).
type Directory interface {
	// ListUsers returns all accounts, creation-time ascending, secrets stripped.
	ListUsers(ctx context.Context) ([]model.PublicUser, error)

	// GetUserByUsername returns the account with the given username, or
	// ErrNotFound. Lookup is case-insensitive over the normalized username.
	GetUserByUsername(ctx context.Context, username string) (*model.PublicUser, error)

	// CreateUser validates and creates a new ACTIVE account and appends a
	// CREATE_USER audit event. Errors: ErrInvalidInput, ErrDuplicateUsername.
	CreateUser(ctx context.Context, input CreateUserInput, actor model.SessionUser) (*model.PublicUser, error)

	// UpdateUserRole changes an account's role under the lockout safety
	// checks and appends an UPDATE_ROLE audit event. Setting the role the
	// account already has is a no-op success with no audit entry.
	// Errors: ErrNotFound, ErrSelfLockout, ErrLastAdmin.
	UpdateUserRole(ctx context.Context, id string, role model.Role, actor model.SessionUser) (*model.PublicUser, error)

	// DeleteUser removes an account under the lockout safety checks and
	// appends a DELETE_USER audit event.
	// Errors: ErrNotFound, ErrSelfDelete, ErrLastAdmin.
	DeleteUser(ctx context.Context, id string, actor model.SessionUser) error

	// Authenticate verifies a username/password pair, updates the account's
	// last-login timestamp, and appends a LOGIN_SUCCESS audit event. Failed
	// attempts append nothing. Errors: ErrInvalidCredentials, ErrInactiveAccount.
	Authenticate(ctx context.Context, username, password string) (*model.SessionUser, error)

	// RecordLogout appends a LOGOUT audit event for the session.
	RecordLogout(ctx context.Context, session model.SessionUser) error

	// ListAuditEvents returns the audit trail newest-first, ties broken by
	// reverse creation order.
	ListAuditEvents(ctx context.Context) ([]model.AuditEvent, error)

	// DashboardSummary returns account and log counts.
	DashboardSummary(ctx context.Context) (*model.DashboardSummary, error)
}
