package handler

import (
	"net/http"
	"strings"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 200
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	dir directory.Directory
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(dir directory.Directory) *AuditHandler {
	return &AuditHandler{dir: dir}
}

// List returns audit events newest-first, optionally filtered by a
// case-insensitive substring over actor, action, target, and details.
// GET /api/v1/logs?q=&limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.dir.ListAuditEvents(r.Context())
	if err != nil {
		writeDirectoryError(w, err)
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	limit := clampInt(queryInt(r, "limit", defaultLogLimit), 1, maxLogLimit)

	filtered := events
	if query != "" {
		filtered = make([]model.AuditEvent, 0, len(events))
		for _, e := range events {
			if matchesQuery(e, query) {
				filtered = append(filtered, e)
			}
		}
	}

	total := len(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  filtered,
		"total": total,
	})
}

func matchesQuery(e model.AuditEvent, query string) bool {
	target := ""
	if e.Target != nil {
		target = *e.Target
	}
	haystack := strings.ToLower(strings.Join([]string{
		e.Actor, string(e.Action), target, e.Details,
	}, " "))
	return strings.Contains(haystack, query)
}
