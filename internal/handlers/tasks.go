package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

type seekScraperRequest struct {
	JobTitles        []string `json:"job_titles"`
	Location         string   `json:"location"`
	JobRequired      int      `json:"job_required"`
	TaskDescription  string   `json:"task_description,omitempty"`
}

type taskAcceptedResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// CreateSeekScraper handles POST /tasks/seek-scraper. The task is
// submitted to the engine and the handler returns immediately with
// status "pending" rather than waiting for the scrape to finish -- see
// DESIGN.md for why this deployment picked the async contract spec §9
// leaves open.
func (h *Handlers) CreateSeekScraper(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req seekScraperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.JobTitles) == 0 {
		writeError(w, http.StatusBadRequest, "job_titles must include at least one title")
		return
	}
	if req.JobRequired < 0 || req.JobRequired > 50 {
		writeError(w, http.StatusBadRequest, "job_required must be between 0 and 50")
		return
	}

	cfg := models.SeekScraperConfig{
		Keywords:    joinTitles(req.JobTitles),
		Location:    req.Location,
		MaxPostings: req.JobRequired,
	}
	task, err := h.newTask(r, userID, models.TaskTypeSeekScraper, req.TaskDescription, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, taskAcceptedResponse{
		TaskID:  task.ID,
		Message: "seek_scraper task submitted",
		Status:  string(task.Status),
	})
}

type resumeJobMatchingRequest struct {
	ResumeID        string   `json:"resume_id"`
	TaskID          string   `json:"task_id"`
	AIModel         string   `json:"ai_model,omitempty"`
	TaskDescription string   `json:"task_description,omitempty"`
}

// CreateResumeJobMatching handles POST /tasks/resume-job-matching. The
// referenced task_id is expected to be a completed seek_scraper (or
// job_agent) task whose FoundJobs should be (re)scored.
func (h *Handlers) CreateResumeJobMatching(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req resumeJobMatchingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ResumeID == "" {
		writeError(w, http.StatusBadRequest, "resume_id is required")
		return
	}

	jobs, err := h.App.Store.ListFoundJobs(r.Context(), interfaces.FoundJobListOptions{
		UserID: userID,
		TaskID: req.TaskID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jobIDs := make([]string, 0, len(jobs))
	for _, j := range jobs {
		jobIDs = append(jobIDs, j.ID)
	}

	cfg := models.ResumeJobMatchingConfig{
		ResumeID: req.ResumeID,
		JobIDs:   jobIDs,
		AIModel:  req.AIModel,
	}
	task, err := h.newTask(r, userID, models.TaskTypeResumeJobMatching, req.TaskDescription, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"task_id":      task.ID,
		"message":      "resume_job_matching task submitted",
		"jobs_analyzed": len(jobIDs),
		"resume_id":    req.ResumeID,
		"ai_model":     req.AIModel,
		"status":       task.Status,
	})
}

type jobAgentRequest struct {
	JobTitles       []string `json:"job_titles"`
	Location        string   `json:"location"`
	JobRequired     int      `json:"job_required"`
	TaskDescription string   `json:"task_description,omitempty"`
	ResumeID        string   `json:"resume_id"`
	AIModel         string   `json:"ai_model,omitempty"`
}

// CreateJobAgent handles POST /tasks/job-agent.
func (h *Handlers) CreateJobAgent(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req jobAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.JobTitles) == 0 {
		writeError(w, http.StatusBadRequest, "job_titles must include at least one title")
		return
	}
	if req.ResumeID == "" {
		writeError(w, http.StatusBadRequest, "resume_id is required")
		return
	}

	cfg := models.JobAgentConfig{
		ResumeID:    req.ResumeID,
		Keywords:    joinTitles(req.JobTitles),
		Location:    req.Location,
		MaxPostings: req.JobRequired,
		AIModel:     req.AIModel,
	}
	task, err := h.newTask(r, userID, models.TaskTypeJobAgent, req.TaskDescription, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, taskAcceptedResponse{
		TaskID:  task.ID,
		Message: "job_agent task submitted",
		Status:  string(task.Status),
	})
}

// newTask creates and persists a pending task, then submits it to the
// engine for dispatch.
func (h *Handlers) newTask(r *http.Request, userID string, taskType models.TaskType, description string, cfg interface{}) (*models.Task, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:          common.NewTaskID(),
		UserID:      userID,
		Type:        taskType,
		Status:      models.TaskStatusPending,
		Description: description,
		Config:      raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.App.Store.CreateTask(r.Context(), task); err != nil {
		return nil, err
	}
	if err := h.App.Engine.Submit(r.Context(), task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks handles GET /tasks?status=&page=&per_page=.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	q := r.URL.Query()
	page := atoiOrDefault(q.Get("page"), 1)
	perPage := atoiOrDefault(q.Get("per_page"), 20)
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 20
	}

	tasks, err := h.App.Store.ListTasks(r.Context(), interfaces.TaskListOptions{
		UserID: userID,
		Status: models.TaskStatus(q.Get("status")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /tasks/{task_id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	taskID := mux.Vars(r)["task_id"]

	task, err := h.App.Store.GetTask(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if task.UserID != userID {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

type taskPatchRequest struct {
	Status         *models.TaskStatus `json:"status,omitempty"`
	ErrorMessage   *string            `json:"other_message,omitempty"`
	ExecutionResult json.RawMessage   `json:"execution_result,omitempty"`
}

// UpdateTask handles PUT /tasks/{task_id}, enforcing the status state
// machine (§3.1) via models.Task.CanTransitionTo.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	taskID := mux.Vars(r)["task_id"]

	task, err := h.App.Store.GetTask(r.Context(), taskID)
	if err != nil || task.UserID != userID {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var patch taskPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if patch.Status != nil {
		if !task.CanTransitionTo(*patch.Status) {
			writeError(w, http.StatusConflict, "illegal status transition from "+string(task.Status)+" to "+string(*patch.Status))
			return
		}
		if *patch.Status == models.TaskStatusCancelled {
			_ = h.App.Engine.Cancel(r.Context(), task.ID)
		}
		task.Status = *patch.Status
	}
	if patch.ErrorMessage != nil {
		task.ErrorMessage = *patch.ErrorMessage
	}
	if len(patch.ExecutionResult) > 0 {
		task.Result = patch.ExecutionResult
	}
	task.UpdatedAt = time.Now()

	if err := h.App.Store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func joinTitles(titles []string) string {
	out := ""
	for i, t := range titles {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

func atoiOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
