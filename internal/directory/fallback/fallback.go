// Package fallback composes the durable and in-memory directory backends.
// Every operation tries the durable backend first and, when it signals
// unavailability (or was never configured), serves the same operation from
// the memory store. The degradation is logged once per process so a dead
// database does not flood the log.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
)

// Directory is the fallback orchestrator. It is stateless apart from the
// one-shot degradation warning.
type Directory struct {
	durable directory.Directory // nil when durable mode is not configured
	memory  directory.Directory
	logger  *slog.Logger

	warnOnce sync.Once
}

var _ directory.Directory = (*Directory)(nil)

// New builds the orchestrator. durable may be nil, in which case every
// operation is served from memory and the degradation is announced once
// up front.
func New(durable, memory directory.Directory, logger *slog.Logger) *Directory {
	d := &Directory{
		durable: durable,
		memory:  memory,
		logger:  logger,
	}
	if durable == nil {
		d.warnOnce.Do(func() {
			d.logger.Warn("no durable directory configured, serving from in-memory store")
		})
	}
	return d
}

// Degraded reports whether requests are currently served from memory because
// the durable backend is absent. Used by the readiness probe.
func (d *Directory) Degraded() bool {
	return d.durable == nil
}

func (d *Directory) warn(err error) {
	d.warnOnce.Do(func() {
		d.logger.Warn("durable directory unavailable, serving from in-memory store", "error", err)
	})
}

// fall reports whether the durable result requires falling back to memory.
func (d *Directory) fall(err error) bool {
	if d.durable == nil {
		return true
	}
	if errors.Is(err, directory.ErrUnavailable) {
		d.warn(err)
		return true
	}
	return false
}

func (d *Directory) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	if d.durable != nil {
		users, err := d.durable.ListUsers(ctx)
		if !d.fall(err) {
			return users, err
		}
	}
	return d.memory.ListUsers(ctx)
}

func (d *Directory) GetUserByUsername(ctx context.Context, username string) (*model.PublicUser, error) {
	if d.durable != nil {
		user, err := d.durable.GetUserByUsername(ctx, username)
		if !d.fall(err) {
			return user, err
		}
	}
	return d.memory.GetUserByUsername(ctx, username)
}

func (d *Directory) CreateUser(ctx context.Context, input directory.CreateUserInput, actor model.SessionUser) (*model.PublicUser, error) {
	if d.durable != nil {
		user, err := d.durable.CreateUser(ctx, input, actor)
		if !d.fall(err) {
			return user, err
		}
	}
	return d.memory.CreateUser(ctx, input, actor)
}

func (d *Directory) UpdateUserRole(ctx context.Context, id string, role model.Role, actor model.SessionUser) (*model.PublicUser, error) {
	if d.durable != nil {
		user, err := d.durable.UpdateUserRole(ctx, id, role, actor)
		if !d.fall(err) {
			return user, err
		}
	}
	return d.memory.UpdateUserRole(ctx, id, role, actor)
}

func (d *Directory) DeleteUser(ctx context.Context, id string, actor model.SessionUser) error {
	if d.durable != nil {
		err := d.durable.DeleteUser(ctx, id, actor)
		if !d.fall(err) {
			return err
		}
	}
	return d.memory.DeleteUser(ctx, id, actor)
}

func (d *Directory) Authenticate(ctx context.Context, username, password string) (*model.SessionUser, error) {
	if d.durable != nil {
		session, err := d.durable.Authenticate(ctx, username, password)
		if !d.fall(err) {
			return session, err
		}
	}
	return d.memory.Authenticate(ctx, username, password)
}

func (d *Directory) RecordLogout(ctx context.Context, session model.SessionUser) error {
	if d.durable != nil {
		err := d.durable.RecordLogout(ctx, session)
		if !d.fall(err) {
			return err
		}
	}
	return d.memory.RecordLogout(ctx, session)
}

func (d *Directory) ListAuditEvents(ctx context.Context) ([]model.AuditEvent, error) {
	if d.durable != nil {
		events, err := d.durable.ListAuditEvents(ctx)
		if !d.fall(err) {
			return events, err
		}
	}
	return d.memory.ListAuditEvents(ctx)
}

func (d *Directory) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	if d.durable != nil {
		summary, err := d.durable.DashboardSummary(ctx)
		if !d.fall(err) {
			return summary, err
		}
	}
	return d.memory.DashboardSummary(ctx)
}
