package model

import "time"

// AuditAction enumerates the privileged actions recorded in the audit log.
type AuditAction string

const (
	ActionLoginSuccess AuditAction = "LOGIN_SUCCESS"
	ActionLogout       AuditAction = "LOGOUT"
	ActionCreateUser   AuditAction = "CREATE_USER"
	ActionUpdateRole   AuditAction = "UPDATE_ROLE"
	ActionDeleteUser   AuditAction = "DELETE_USER"
)

// AuditEvent is one immutable entry in the append-only audit trail. Actor and
// Target are free-text usernames, not foreign keys, so history survives
// account deletion. IDs are UUIDv7 and therefore creation-ordered, which is
// what breaks timestamp ties in the newest-first listing.
type AuditEvent struct {
	ID        string      `json:"id" db:"id"`
	Actor     string      `json:"user" db:"actor"`
	Action    AuditAction `json:"action" db:"action"`
	Target    *string     `json:"target" db:"target"`
	Timestamp time.Time   `json:"timestamp" db:"recorded_at"`
	Details   string      `json:"details" db:"details"`
}

// Clone returns a copy of e that shares no memory with the original. The
// Target pointer is duplicated so callers can never write through a snapshot
// into stored history.
func (e AuditEvent) Clone() AuditEvent {
	if e.Target != nil {
		t := *e.Target
		e.Target = &t
	}
	return e
}
