package directory

import (
	"time"

	"github.com/regionops/rims/internal/model"
)

// Canonical bootstrap state shared by both backends. The durable backend
// seeds these rows once into an empty store; the memory backend starts from
// them on construction. Fixed IDs and timestamps keep the two backends
// interchangeable in tests and demos.

func seedTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic("directory: bad seed timestamp: " + value)
	}
	return t
}

// SeedUsers returns the two canonical accounts: one admin, one staff.
func SeedUsers() []model.User {
	createdAt := seedTime("2026-02-20T09:00:00Z")
	adminLogin := seedTime("2026-02-24T08:15:00Z")
	staffLogin := seedTime("2026-02-23T14:42:00Z")

	return []model.User{
		{
			ID:          "u_admin_001",
			Username:    "admin",
			Name:        "Regional Admin",
			Password:    "admin123",
			Role:        model.RoleAdmin,
			Status:      model.StatusActive,
			CreatedAt:   createdAt,
			LastLoginAt: &adminLogin,
		},
		{
			ID:          "u_staff_001",
			Username:    "staff",
			Name:        "Support Staff",
			Password:    "staff123",
			Role:        model.RoleStaff,
			Status:      model.StatusActive,
			CreatedAt:   createdAt,
			LastLoginAt: &staffLogin,
		},
	}
}

// SeedAuditEvents returns the two bootstrap audit entries recording the
// seeded accounts.
func SeedAuditEvents() []model.AuditEvent {
	adminTarget := "admin"
	staffTarget := "staff"

	return []model.AuditEvent{
		{
			ID:        "log_seed_001",
			Actor:     "system",
			Action:    model.ActionCreateUser,
			Target:    &adminTarget,
			Timestamp: seedTime("2026-02-20T09:00:00Z"),
			Details:   "Initial administrator account seeded for demo environment.",
		},
		{
			ID:        "log_seed_002",
			Actor:     "system",
			Action:    model.ActionCreateUser,
			Target:    &staffTarget,
			Timestamp: seedTime("2026-02-20T09:01:00Z"),
			Details:   "Initial staff account seeded for demo environment.",
		},
	}
}
