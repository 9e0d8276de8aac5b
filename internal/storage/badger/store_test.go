package badger

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
	cfg := &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "badger")}
	db, err := NewBadgerDB(arbor.NewLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, arbor.NewLogger()).(*Store)
}

func TestCreateAndGetTaskRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{ID: "task_1", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending, Config: []byte(`{"keywords":"go"}`)}
	require.NoError(t, store.CreateTask(ctx, task))

	got, err := store.GetTask(ctx, "task_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.TaskStatusPending, got.Status)
}

func TestGetTaskMissingErrors(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetTask(context.Background(), "missing")
	assert.Error(t, err)
}

func TestUpdateTaskRejectsIllegalTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{ID: "task_2", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusCompleted}
	require.NoError(t, store.CreateTask(ctx, task))

	task.Status = models.TaskStatusRunning
	assert.Error(t, store.UpdateTask(ctx, task))
}

func TestListTasksFiltersByUserAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &models.Task{ID: "t1", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending}))
	require.NoError(t, store.CreateTask(ctx, &models.Task{ID: "t2", UserID: "u1", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusCompleted}))
	require.NoError(t, store.CreateTask(ctx, &models.Task{ID: "t3", UserID: "u2", Type: models.TaskTypeSeekScraper, Status: models.TaskStatusPending}))

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
	assert.Empty(t, inserted)
}

func TestUpdateFoundJobPersistsScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertFoundJobs(ctx, []*models.FoundJob{{ID: "job_3", UserID: "u1", TaskID: "t1", Title: "C", JobURL: "https://example.com/c"}})
	require.NoError(t, err)

	job, err := store.GetFoundJob(ctx, "job_3")
	require.NoError(t, err)
	score := 42.0
	job.MatchScore = &score
	job.ApplicationStatus = models.FoundJobStatusReviewed
	require.NoError(t, store.UpdateFoundJob(ctx, job))

	got, err := store.GetFoundJob(ctx, "job_3")
	require.NoError(t, err)
	require.NotNil(t, got.MatchScore)
	assert.Equal(t, 42.0, *got.MatchScore)
	assert.Equal(t, models.FoundJobStatusReviewed, got.ApplicationStatus)
}

func TestListFoundJobsFiltersByMinScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low, high := 10.0, 90.0
	_, err := store.InsertFoundJobs(ctx, []*models.FoundJob{
		{ID: "job_low", UserID: "u1", TaskID: "t1", Title: "A", JobURL: "https://example.com/a", MatchScore: &low},
		{ID: "job_high", UserID: "u1", TaskID: "t1", Title: "B", JobURL: "https://example.com/b", MatchScore: &high},
	})
	require.NoError(t, err)

	min := 50.0
	got, err := store.ListFoundJobs(ctx, interfaces.FoundJobListOptions{UserID: "u1", MinScore: &min})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "job_high", got[0].ID)
}

func TestResumeNormalizationMatchesAcrossTrackingParams(t *testing.T) {
	assert.Equal(t, normalizeJobURL("HTTPS://Example.com/job/1?utm_source=x"), normalizeJobURL("https://example.com/job/1?utm_source=y"))
	assert.NotEqual(t, normalizeJobURL("https://example.com/job/1"), normalizeJobURL("https://example.com/job/2"))
}
