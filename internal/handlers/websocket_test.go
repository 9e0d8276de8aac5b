package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaero/internal/models"
)

func TestTaskEventsRejectsUnknownTask(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks/missing/events", nil), "owner")
	req = mux.SetURLVars(req, map[string]string{"task_id": "missing"})
	rec := httptest.NewRecorder()

	h.TaskEvents(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskEventsRejectsOtherUsersTask(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	require.NoError(t, store.CreateTask(context.Background(), &models.Task{ID: "t1", UserID: "owner", Status: models.TaskStatusRunning}))

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks/t1/events", nil), "intruder")
	req = mux.SetURLVars(req, map[string]string{"task_id": "t1"})
	rec := httptest.NewRecorder()

	h.TaskEvents(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskEventsStreamsCompletedTaskThenCloses(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)
	require.NoError(t, store.CreateTask(context.Background(), &models.Task{ID: "t2", UserID: "owner", Status: models.TaskStatusCompleted}))

	router := mux.NewRouter()
	router.HandleFunc("/tasks/{task_id}/events", h.TaskEvents)
	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/tasks/t2/events"
	header := http.Header{}
	header.Set(userIDHeader, "owner")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got models.Task
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
}

func TestIsTerminalClassifiesStatuses(t *testing.T) {
	assert.True(t, isTerminal(models.TaskStatusCompleted))
	assert.True(t, isTerminal(models.TaskStatusFailed))
	assert.True(t, isTerminal(models.TaskStatusCancelled))
	assert.False(t, isTerminal(models.TaskStatusPending))
	assert.False(t, isTerminal(models.TaskStatusRunning))
}
