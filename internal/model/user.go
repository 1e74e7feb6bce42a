package model

import "time"

// Role is the access level of a console account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Status is the lifecycle state of a console account.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisabled Status = "DISABLED"
)

// User is a console account as stored. The password is compared by plain
// equality in the current design; it is never serialized in responses.
type User struct {
	ID          string     `json:"id" db:"id"`
	Username    string     `json:"username" db:"username"`
	Name        string     `json:"name" db:"name"`
	Password    string     `json:"-" db:"password"`
	Role        Role       `json:"role" db:"role"`
	Status      Status     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at" db:"last_login_at"`
}

// PublicUser is the credential-free projection of a User returned by every
// directory read.
type PublicUser struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// Public strips the credential from u. The LastLoginAt pointer is copied so
// callers never share memory with store internals.
func (u User) Public() PublicUser {
	var last *time.Time
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		last = &t
	}
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Role:        u.Role,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: last,
	}
}

// SessionUser is the minimal projection of an account carried in the session
// cookie. It never holds the credential and is re-validated against the live
// directory on every privileged request.
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// Session builds the session projection of u.
func (u PublicUser) Session() SessionUser {
	return SessionUser{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
	}
}
