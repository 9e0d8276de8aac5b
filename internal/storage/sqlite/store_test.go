package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

func newTestStore(t *testing.T) *Store {
	cfg := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		BusyTimeoutMS: 2000,
		CacheSizeMB:   4,
	}
	db, err := NewSQLiteDB(arbor.NewLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, arbor.NewLogger()).(*Store)
}

func TestCreateAndGetTaskRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{
		ID:     "task_1",
		UserID: "u1",
		Type:   models.TaskTypeSeekScraper,
		Status: models.TaskStatusPending,
		Config: []byte(`{"keywords":"go developer"}`),
	}
	require.NoError(t, store.CreateTask(ctx, task))

	got, err := store.GetTask(ctx, "task_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.TaskStatusPending, got.Status)
	assert.JSONEq(t, `{"keywords":"go developer"}`, string(got.Config))
}

func TestGetTaskMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetTask(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateTaskRejectsIllegalTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{ID: "task_2", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusCompleted, Config: []byte(`{}`)}
	require.NoError(t, store.CreateTask(ctx, task))

	task.Status = models.TaskStatusRunning
	err := store.UpdateTask(ctx, task)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateTaskAllowsLegalTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{ID: "task_3", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending, Config: []byte(`{}`)}
	require.NoError(t, store.CreateTask(ctx, task))

	task.Status = models.TaskStatusRunning
	require.NoError(t, store.UpdateTask(ctx, task))

	got, err := store.GetTask(ctx, "task_3")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, got.Status)
}

func TestListTasksFiltersByUserAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &models.Task{ID: "t1", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending, Config: []byte(`{}`)}))
	require.NoError(t, store.CreateTask(ctx, &models.Task{ID: "t2", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusCompleted, Config: []byte(`{}`)}))
	require.NoError(t, store.CreateTask(ctx, &models.Task{ID: "t3", UserID: "u2", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending, Config: []byte(`{}`)}))

	got, err := store.ListTasks(ctx, interfaces.TaskListOptions{UserID: "u1", Status: models.TaskStatusPending})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestInsertFoundJobsDedupesByNormalizedURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []*models.FoundJob{{ID: "job_1", UserID: "u1", TaskID: "t1", Title: "Go Dev", JobURL: "https://example.com/job/1?utm_source=x"}}
	inserted, err := store.InsertFoundJobs(ctx, first)
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	dupe := []*models.FoundJob{{ID: "job_2", UserID: "u1", TaskID: "t1", Title: "Go Dev", JobURL: "https://example.com/job/1?utm_source=y"}}
	inserted, err = store.InsertFoundJobs(ctx, dupe)
	require.NoError(t, err)
	assert.Empty(t, inserted, "same normalized URL for same user should be skipped as duplicate")
}

func TestGetFoundJobRoundTripsOptionalFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	score := 72.5
	jobs := []*models.FoundJob{{
		ID: "job_3", UserID: "u1", TaskID: "t1", Title: "Backend Engineer",
		JobURL: "https://example.com/job/3", MatchScore: &score, MatchRationale: "strong fit",
	}}
	_, err := store.InsertFoundJobs(ctx, jobs)
	require.NoError(t, err)

	got, err := store.GetFoundJob(ctx, "job_3")
	require.NoError(t, err)
	require.NotNil(t, got.MatchScore)
	assert.Equal(t, 72.5, *got.MatchScore)
	assert.Equal(t, "strong fit", got.MatchRationale)
	assert.Equal(t, models.FoundJobStatusAgentFound, got.ApplicationStatus)
}

func TestListFoundJobsOrdersByMatchScoreDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low, high := 10.0, 90.0
	_, err := store.InsertFoundJobs(ctx, []*models.FoundJob{
		{ID: "job_low", UserID: "u1", TaskID: "t1", Title: "A", JobURL: "https://example.com/a", MatchScore: &low},
		{ID: "job_high", UserID: "u1", TaskID: "t1", Title: "B", JobURL: "https://example.com/b", MatchScore: &high},
	})
	require.NoError(t, err)

	got, err := store.ListFoundJobs(ctx, interfaces.FoundJobListOptions{UserID: "u1", OrderBy: "match_score", Reverse: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "job_high", got[0].ID)
}

func TestUpdateFoundJobPersistsScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertFoundJobs(ctx, []*models.FoundJob{{ID: "job_4", UserID: "u1", TaskID: "t1", Title: "C", JobURL: "https://example.com/c"}})
	require.NoError(t, err)

	job, err := store.GetFoundJob(ctx, "job_4")
	require.NoError(t, err)
	score := 55.0
	job.MatchScore = &score
	job.ApplicationStatus = models.FoundJobStatusReviewed
	require.NoError(t, store.UpdateFoundJob(ctx, job))

	got, err := store.GetFoundJob(ctx, "job_4")
	require.NoError(t, err)
	assert.Equal(t, 55.0, *got.MatchScore)
	assert.Equal(t, models.FoundJobStatusReviewed, got.ApplicationStatus)
}

func TestListResumesReturnsOnlyRequestedUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.DB().ExecContext(ctx,
		`INSERT INTO agent_resumes (id, user_id, name, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		"resume_1", "u1", "My Resume", "experienced go engineer", 0)
	require.NoError(t, err)
	_, err = store.db.DB().ExecContext(ctx,
		`INSERT INTO agent_resumes (id, user_id, name, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		"resume_2", "u2", "Other Resume", "other content", 0)
	require.NoError(t, err)

	got, err := store.ListResumes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "resume_1", got[0].ID)
}

func TestGetResumeMissingErrors(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetResume(context.Background(), "missing")
	assert.Error(t, err)
}
