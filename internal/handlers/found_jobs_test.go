package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaero/internal/models"
)

func seedFoundJob(t *testing.T, store *memStore, job *models.FoundJob) {
	t.Helper()
	_, err := store.InsertFoundJobs(context.Background(), []*models.FoundJob{job})
	require.NoError(t, err)
}

func TestGetFoundJobHidesOtherUsersJobs(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	seedFoundJob(t, store, &models.FoundJob{ID: "job_1", UserID: "owner", Title: "Go Dev"})

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks/found-jobs/job_1", nil), "intruder")
	req = mux.SetURLVars(req, map[string]string{"job_id": "job_1"})
	rec := httptest.NewRecorder()

	h.GetFoundJob(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFoundJobReturnsOwnersJob(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	seedFoundJob(t, store, &models.FoundJob{ID: "job_2", UserID: "owner", Title: "Go Dev"})

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks/found-jobs/job_2", nil), "owner")
	req = mux.SetURLVars(req, map[string]string{"job_id": "job_2"})
	rec := httptest.NewRecorder()

	h.GetFoundJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.FoundJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Go Dev", got.Title)
}

func TestUpdateFoundJobTogglesSavedIndependentlyOfApplicationStatus(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	seedFoundJob(t, store, &models.FoundJob{ID: "job_3", UserID: "owner", Title: "Go Dev", ApplicationStatus: models.FoundJobStatusAgentFound})

	patch, _ := json.Marshal(map[string]bool{"saved": true})
	req := withUser(httptest.NewRequest(http.MethodPut, "/tasks/found-jobs/job_3", bytes.NewReader(patch)), "owner")
	req = mux.SetURLVars(req, map[string]string{"job_id": "job_3"})
	rec := httptest.NewRecorder()

	h.UpdateFoundJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.FoundJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Saved)
	assert.Equal(t, models.FoundJobStatusAgentFound, got.ApplicationStatus, "saved is independent of application_status")

	unsave, _ := json.Marshal(map[string]bool{"saved": false})
	req2 := withUser(httptest.NewRequest(http.MethodPut, "/tasks/found-jobs/job_3", bytes.NewReader(unsave)), "owner")
	req2 = mux.SetURLVars(req2, map[string]string{"job_id": "job_3"})
	rec2 := httptest.NewRecorder()

	h.UpdateFoundJob(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	var got2 models.FoundJob
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &got2))
	assert.False(t, got2.Saved, "saved=false must be honored, not silently ignored")
}

func TestUpdateFoundJobPatchesApplicationStatus(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	seedFoundJob(t, store, &models.FoundJob{ID: "job_4", UserID: "owner", Title: "Go Dev", ApplicationStatus: models.FoundJobStatusAgentFound})

	patch, _ := json.Marshal(map[string]string{"application_status": "applied"})
	req := withUser(httptest.NewRequest(http.MethodPut, "/tasks/found-jobs/job_4", bytes.NewReader(patch)), "owner")
	req = mux.SetURLVars(req, map[string]string{"job_id": "job_4"})
	rec := httptest.NewRecorder()

	h.UpdateFoundJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.FoundJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.FoundJobStatusApplied, got.ApplicationStatus)
	assert.False(t, got.Saved)
}

func TestListFoundJobsRequiresUserIdentity(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	req := httptest.NewRequest(http.MethodGet, "/tasks/found-jobs", nil)
	rec := httptest.NewRecorder()

	h.ListFoundJobs(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
