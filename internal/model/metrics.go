package model

import "time"

// ServiceHealth is the coarse health classification shown on the dashboard.
type ServiceHealth string

const (
	HealthHealthy ServiceHealth = "HEALTHY"
	HealthWarning ServiceHealth = "WARNING"
)

// MetricsSnapshot is a synthetic system-health reading. It is never persisted;
// each read is recomputed from the current time bucket.
type MetricsSnapshot struct {
	CPU            float64       `json:"cpu"`
	Disk           float64       `json:"disk"`
	NetworkInMbps  float64       `json:"network_in_mbps"`
	NetworkOutMbps float64       `json:"network_out_mbps"`
	ActiveTickets  int           `json:"active_tickets"`
	ServiceHealth  ServiceHealth `json:"service_health"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// DashboardSummary holds the account and log counts shown on the dashboard.
type DashboardSummary struct {
	TotalUsers int `json:"total_users"`
	AdminUsers int `json:"admin_users"`
	StaffUsers int `json:"staff_users"`
	LogEntries int `json:"log_entries"`
}
