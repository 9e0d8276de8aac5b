package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/app"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/engine"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

type memStore struct {
	mu        sync.Mutex
	tasks     map[string]*models.Task
	foundJobs map[string]*models.FoundJob
	resumes   map[string]*models.Resume
}

func newMemStore() *memStore {
	return &memStore{
		tasks:     make(map[string]*models.Task),
		foundJobs: make(map[string]*models.FoundJob),
		resumes:   make(map[string]*models.Resume),
	}
}

func (s *memStore) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}
func (s *memStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, assertNotFound
	}
	return t, nil
}
func (s *memStore) ListTasks(ctx context.Context, opts interfaces.TaskListOptions) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Task
	for _, t := range s.tasks {
		if t.UserID == opts.UserID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (s *memStore) UpdateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}
func (s *memStore) InsertFoundJobs(ctx context.Context, jobs []*models.FoundJob) ([]*models.FoundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		if j.ApplicationStatus == "" {
			j.ApplicationStatus = models.FoundJobStatusAgentFound
		}
		s.foundJobs[j.ID] = j
	}
	return jobs, nil
}
func (s *memStore) GetFoundJob(ctx context.Context, id string) (*models.FoundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.foundJobs[id]
	if !ok {
		return nil, assertNotFound
	}
	return j, nil
}
func (s *memStore) ListFoundJobs(ctx context.Context, opts interfaces.FoundJobListOptions) ([]*models.FoundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.FoundJob
	for _, j := range s.foundJobs {
		if j.UserID == opts.UserID {
			out = append(out, j)
		}
	}
	return out, nil
}
func (s *memStore) UpdateFoundJob(ctx context.Context, job *models.FoundJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.foundJobs[job.ID] = job
	return nil
}
func (s *memStore) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resumes[id]
	if !ok {
		return nil, assertNotFound
	}
	return r, nil
}
func (s *memStore) ListResumes(ctx context.Context, userID string) ([]*models.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Resume
	for _, r := range s.resumes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (s *memStore) Close() error { return nil }

var assertNotFound = &notFoundErr{}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "not found" }

func newTestApp(t *testing.T) (*app.App, *memStore) {
	store := newMemStore()
	cfg := &common.Config{Engine: common.EngineConfig{MaxConcurrentTasksPerUser: 2}}
	logger := arbor.NewLogger()

	eng := engine.New(cfg, store, logger)
	eng.RegisterWorker(models.TaskTypeSeekScraper, func(rc *interfaces.RunContext) (interface{}, error) {
		return map[string]int{"jobs_found": 1}, nil
	})
	eng.RegisterWorker(models.TaskTypeResumeJobMatching, func(rc *interfaces.RunContext) (interface{}, error) {
		return nil, nil
	})
	eng.RegisterWorker(models.TaskTypeJobAgent, func(rc *interfaces.RunContext) (interface{}, error) {
		return nil, nil
	})
	eng.Start()
	t.Cleanup(eng.Stop)

	application := &app.App{Config: cfg, Logger: logger, Store: store, Engine: eng}
	return application, store
}

func withUser(r *http.Request, userID string) *http.Request {
	r.Header.Set(userIDHeader, userID)
	return r
}

func TestCreateSeekScraperRejectsEmptyJobTitles(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	body, _ := json.Marshal(map[string]interface{}{"job_titles": []string{}, "job_required": 5})
	req := withUser(httptest.NewRequest(http.MethodPost, "/tasks/seek-scraper", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()

	h.CreateSeekScraper(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSeekScraperRejectsOutOfRangeJobRequired(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	body, _ := json.Marshal(map[string]interface{}{"job_titles": []string{"go developer"}, "job_required": 500})
	req := withUser(httptest.NewRequest(http.MethodPost, "/tasks/seek-scraper", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()

	h.CreateSeekScraper(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSeekScraperRequiresUserIdentity(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	body, _ := json.Marshal(map[string]interface{}{"job_titles": []string{"go developer"}, "job_required": 5})
	req := httptest.NewRequest(http.MethodPost, "/tasks/seek-scraper", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateSeekScraper(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSeekScraperReturnsPendingStatusImmediately(t *testing.T) {
	application, _ := newTestApp(t)
	h := New(application)

	body, _ := json.Marshal(map[string]interface{}{"job_titles": []string{"go developer", "backend"}, "job_required": 10})
	req := withUser(httptest.NewRequest(http.MethodPost, "/tasks/seek-scraper", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()

	h.CreateSeekScraper(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp taskAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "pending", resp.Status)
}

func TestGetTaskHidesOtherUsersTasks(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	task := &models.Task{ID: "t1", UserID: "owner", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending}
	require.NoError(t, store.CreateTask(context.Background(), task))

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks/t1", nil), "intruder")
	req = mux.SetURLVars(req, map[string]string{"task_id": "t1"})
	rec := httptest.NewRecorder()

	h.GetTask(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTaskRejectsIllegalTransition(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	task := &models.Task{ID: "t2", UserID: "owner", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusCompleted}
	require.NoError(t, store.CreateTask(context.Background(), task))

	patch, _ := json.Marshal(map[string]string{"status": "running"})
	req := withUser(httptest.NewRequest(http.MethodPut, "/tasks/t2", bytes.NewReader(patch)), "owner")
	req = mux.SetURLVars(req, map[string]string{"task_id": "t2"})
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateTaskAllowsLegalTransition(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	task := &models.Task{ID: "t3", UserID: "owner", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending}
	require.NoError(t, store.CreateTask(context.Background(), task))

	patch, _ := json.Marshal(map[string]string{"status": "cancelled"})
	req := withUser(httptest.NewRequest(http.MethodPut, "/tasks/t3", bytes.NewReader(patch)), "owner")
	req = mux.SetURLVars(req, map[string]string{"task_id": "t3"})
	rec := httptest.NewRecorder()

	h.UpdateTask(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListTasksDefaultsPagination(t *testing.T) {
	application, store := newTestApp(t)
	h := New(application)

	for i := 0; i < 3; i++ {
		task := &models.Task{ID: "list-" + string(rune('a'+i)), UserID: "owner", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending}
		require.NoError(t, store.CreateTask(context.Background(), task))
	}

	req := withUser(httptest.NewRequest(http.MethodGet, "/tasks", nil), "owner")
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []*models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)
}
