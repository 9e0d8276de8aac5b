package matcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	failFor  map[string]bool
	provider interfaces.ProviderName
}

func (f *fakeLLM) ScoreResume(ctx context.Context, resume *models.Resume, job *models.FoundJob) (*models.MatchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failFor[job.ID] {
		return nil, errors.New("provider error")
	}
	return &models.MatchResult{MatchingScore: 0.8, Summary: "good fit", Strengths: []string{"go"}}, nil
}

func (f *fakeLLM) Provider() interfaces.ProviderName { return f.provider }
func (f *fakeLLM) Close() error                      { return nil }

type fakeStore struct {
	mu      sync.Mutex
	updated []*models.FoundJob
	failAll bool
}

func (s *fakeStore) CreateTask(ctx context.Context, task *models.Task) error { return nil }
func (s *fakeStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return nil, nil
}
func (s *fakeStore) ListTasks(ctx context.Context, opts interfaces.TaskListOptions) ([]*models.Task, error) {
	return nil, nil
}
func (s *fakeStore) UpdateTask(ctx context.Context, task *models.Task) error { return nil }
func (s *fakeStore) InsertFoundJobs(ctx context.Context, jobs []*models.FoundJob) ([]*models.FoundJob, error) {
	return jobs, nil
}
func (s *fakeStore) GetFoundJob(ctx context.Context, id string) (*models.FoundJob, error) {
	return nil, nil
}
func (s *fakeStore) ListFoundJobs(ctx context.Context, opts interfaces.FoundJobListOptions) ([]*models.FoundJob, error) {
	return nil, nil
}
func (s *fakeStore) UpdateFoundJob(ctx context.Context, job *models.FoundJob) error {
	if s.failAll {
		return errors.New("store down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, job)
	return nil
}
func (s *fakeStore) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	return nil, nil
}
func (s *fakeStore) ListResumes(ctx context.Context, userID string) ([]*models.Resume, error) {
	return nil, nil
}
func (s *fakeStore) Close() error { return nil }

func jobList(n int) []*models.FoundJob {
	jobs := make([]*models.FoundJob, n)
	for i := range jobs {
		jobs[i] = &models.FoundJob{ID: "job-" + string(rune('a'+i))}
	}
	return jobs
}

func TestChunkSplitsIntoFixedSizeBatches(t *testing.T) {
	jobs := jobList(7)
	batches := chunk(jobs, 3)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
}

func TestChunkEmptyInput(t *testing.T) {
	assert.Nil(t, chunk(nil, 5))
}

func TestMatchAllScoresEveryJob(t *testing.T) {
	llm := &fakeLLM{}
	store := &fakeStore{}
	cfg := common.MatcherConfig{BatchSize: 2, MaxConcurrentBatch: 2}
	m := New(llm, store, cfg, arbor.NewLogger())

	jobs := jobList(5)
	var progressCalls int
	result, err := m.MatchAll(context.Background(), &models.Resume{ID: "r1"}, jobs, func(p interfaces.MatchProgress) {
		progressCalls++
	})

	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalJobs)
	assert.Equal(t, 5, result.SuccessfulJobs)
	assert.Equal(t, 0, result.FailedJobs)
	assert.InDelta(t, 0.8, result.AverageScore, 0.0001)
	assert.Equal(t, 5, llm.calls)
	assert.Greater(t, progressCalls, 0)
}

func TestMatchAllErrorsWhenNoJobScoresSuccessfully(t *testing.T) {
	llm := &fakeLLM{failFor: map[string]bool{"job-a": true, "job-b": true}}
	store := &fakeStore{}
	cfg := common.MatcherConfig{BatchSize: 5, MaxConcurrentBatch: 1}
	m := New(llm, store, cfg, arbor.NewLogger())

	jobs := jobList(2)
	result, err := m.MatchAll(context.Background(), &models.Resume{ID: "r1"}, jobs, nil)

	require.Error(t, err)
	assert.Equal(t, 2, result.FailedJobs)
	assert.Equal(t, 0, result.SuccessfulJobs)
}

func TestMatchAllEmptyJobListSucceeds(t *testing.T) {
	llm := &fakeLLM{}
	store := &fakeStore{}
	cfg := common.MatcherConfig{}
	m := New(llm, store, cfg, arbor.NewLogger())

	result, err := m.MatchAll(context.Background(), &models.Resume{ID: "r1"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalJobs)
}

func TestMatchAllStoreFailureCountsAsFailed(t *testing.T) {
	llm := &fakeLLM{}
	store := &fakeStore{failAll: true}
	cfg := common.MatcherConfig{BatchSize: 5, MaxConcurrentBatch: 1}
	m := New(llm, store, cfg, arbor.NewLogger())

	jobs := jobList(3)
	result, err := m.MatchAll(context.Background(), &models.Resume{ID: "r1"}, jobs, nil)

	require.Error(t, err)
	assert.Equal(t, 3, result.FailedJobs)
}
