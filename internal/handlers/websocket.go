package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/quaero/internal/models"
)

var taskEventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TaskEvents handles GET /tasks/{task_id}/events, upgrading to a
// WebSocket and pushing the task's current state once a second until it
// reaches a terminal status or the client disconnects.
func (h *Handlers) TaskEvents(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	taskID := mux.Vars(r)["task_id"]

	task, err := h.App.Store.GetTask(r.Context(), taskID)
	if err != nil || task.UserID != userID {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	conn, err := taskEventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.App.Logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to upgrade task events connection")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			current, err := h.App.Store.GetTask(r.Context(), taskID)
			if err != nil {
				return
			}
			if err := conn.WriteJSON(current); err != nil {
				return
			}
			if isTerminal(current.Status) {
				return
			}
		}
	}
}

func isTerminal(status models.TaskStatus) bool {
	switch status {
	case models.TaskStatusCompleted, models.TaskStatusFailed, models.TaskStatusCancelled:
		return true
	default:
		return false
	}
}
