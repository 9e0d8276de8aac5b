package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

// ListFoundJobs handles GET /tasks/found-jobs?task_id=&saved_only=.
func (h *Handlers) ListFoundJobs(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	q := r.URL.Query()
	opts := interfaces.FoundJobListOptions{
		UserID:  userID,
		TaskID:  q.Get("task_id"),
		OrderBy: "match_score",
		Reverse: true,
		Limit:   200,
	}
	if q.Get("saved_only") == "true" {
		saved := true
		opts.Saved = &saved
	}

	jobs, err := h.App.Store.ListFoundJobs(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GetFoundJob handles GET /tasks/found-jobs/{job_id}.
func (h *Handlers) GetFoundJob(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	jobID := mux.Vars(r)["job_id"]

	job, err := h.App.Store.GetFoundJob(r.Context(), jobID)
	if err != nil || job.UserID != userID {
		writeError(w, http.StatusNotFound, "found job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

type foundJobPatchRequest struct {
	Saved             *bool                  `json:"saved,omitempty"`
	ApplicationStatus *models.FoundJobStatus `json:"application_status,omitempty"`
}

// UpdateFoundJob handles PUT /tasks/found-jobs/{job_id}. Saved (bookmark)
// and ApplicationStatus are independent fields on FoundJob, so each is
// patched only when present in the request body, and either can be set to
// a falsy value without affecting the other.
func (h *Handlers) UpdateFoundJob(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	jobID := mux.Vars(r)["job_id"]

	job, err := h.App.Store.GetFoundJob(r.Context(), jobID)
	if err != nil || job.UserID != userID {
		writeError(w, http.StatusNotFound, "found job not found")
		return
	}

	var patch foundJobPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if patch.Saved != nil {
		job.Saved = *patch.Saved
	}
	if patch.ApplicationStatus != nil {
		job.ApplicationStatus = *patch.ApplicationStatus
	}

	if err := h.App.Store.UpdateFoundJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, job)
}
