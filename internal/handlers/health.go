package handlers

import (
	"net/http"

	"github.com/ternarybob/quaero/internal/interfaces"
)

func emptyListOptions() interfaces.TaskListOptions {
	return interfaces.TaskListOptions{Limit: 1}
}

// Healthz handles GET /healthz: a liveness probe, always 200 once the
// process is serving.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz: a readiness probe that also confirms the
// store is reachable.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.App.Store.ListTasks(r.Context(), emptyListOptions()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage not ready: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
