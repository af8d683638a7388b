package handler

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness plus a small amount of engine state so a
// probe can tell a freshly restarted watcher from a long-running one.
type HealthHandler struct {
	structures int
	startedAt  time.Time
}

// NewHealthHandler creates a HealthHandler for a watcher polling the given
// number of structures.
func NewHealthHandler(structures int) *HealthHandler {
	return &HealthHandler{
		structures: structures,
		startedAt:  time.Now().UTC(),
	}
}

// HealthCheck reports that the watcher is up, how many structures it polls,
// and how long it has been running.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"structures":     h.structures,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"time":           time.Now().UTC().Format(time.RFC3339),
	})
}
