package handler

import (
	"net/http"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/telemetry"
)

// MetricsHandler serves the synthetic telemetry feed and the dashboard
// summary. Telemetry always comes from the in-memory generator regardless of
// which directory backend is active.
type MetricsHandler struct {
	gen *telemetry.Generator
	dir directory.Directory
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(gen *telemetry.Generator, dir directory.Directory) *MetricsHandler {
	return &MetricsHandler{gen: gen, dir: dir}
}

// Snapshot returns the current mock telemetry reading.
// GET /api/v1/metrics
func (h *MetricsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics": h.gen.Snapshot(),
	})
}

// Dashboard returns account and log counts.
// GET /api/v1/dashboard
func (h *MetricsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dir.DashboardSummary(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": summary,
	})
}
