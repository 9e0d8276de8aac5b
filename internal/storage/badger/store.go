package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// taskRecord and foundJobRecord add a normalized dedup key alongside the
// stored model so badgerhold can index on it without changing the model's
// JSON shape returned to callers.
type taskRecord struct {
	models.Task
}

type foundJobRecord struct {
	models.FoundJob
	NormalizedURL string `badgerhold:"index"`
}

type resumeRecord struct {
	models.Resume
}

// Store implements interfaces.Store against an embedded Badger database via
// badgerhold, intended for local development and single-node deployments.
type Store struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStore creates a new Badger-backed Store.
func NewStore(db *BadgerDB, logger arbor.ILogger) interfaces.Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	return s.db.Store().Insert(task.ID, taskRecord{Task: *task})
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var rec taskRecord
	if err := s.db.Store().Get(id, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("task not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &rec.Task, nil
}

func (s *Store) ListTasks(ctx context.Context, opts interfaces.TaskListOptions) ([]*models.Task, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts.UserID != "" {
		query = query.And("UserID").Eq(opts.UserID)
	}
	if opts.Type != "" {
		query = query.And("Type").Eq(opts.Type)
	}
	if opts.Status != "" {
		query = query.And("Status").Eq(opts.Status)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	var recs []taskRecord
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*models.Task, 0, len(recs))
	for i := range recs {
		t := recs[i].Task
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	existing, err := s.GetTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if existing.Status != task.Status && !existing.CanTransitionTo(task.Status) {
		return fmt.Errorf("invalid task status transition: %s -> %s", existing.Status, task.Status)
	}
	task.UpdatedAt = time.Now().UTC()
	return s.db.Store().Update(task.ID, taskRecord{Task: *task})
}

func (s *Store) InsertFoundJobs(ctx context.Context, jobs []*models.FoundJob) ([]*models.FoundJob, error) {
	var inserted []*models.FoundJob
	for _, job := range jobs {
		normalized := normalizeJobURL(job.JobURL)

		var existing []foundJobRecord
		err := s.db.Store().Find(&existing, badgerhold.Where("UserID").Eq(job.UserID).And("NormalizedURL").Eq(normalized))
		if err != nil {
			return inserted, fmt.Errorf("failed to check for duplicate job: %w", err)
		}
		if len(existing) > 0 {
			continue
		}

		now := time.Now().UTC()
		job.CreatedAt = now
		job.UpdatedAt = now
		if job.ApplicationStatus == "" {
			job.ApplicationStatus = models.FoundJobStatusAgentFound
		}

		rec := foundJobRecord{FoundJob: *job, NormalizedURL: normalized}
		if err := s.db.Store().Insert(job.ID, rec); err != nil {
			return inserted, fmt.Errorf("failed to insert found job: %w", err)
		}
		inserted = append(inserted, job)
	}
	return inserted, nil
}

func (s *Store) GetFoundJob(ctx context.Context, id string) (*models.FoundJob, error) {
	var rec foundJobRecord
	if err := s.db.Store().Get(id, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("found job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get found job: %w", err)
	}
	return &rec.FoundJob, nil
}

func (s *Store) ListFoundJobs(ctx context.Context, opts interfaces.FoundJobListOptions) ([]*models.FoundJob, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts.UserID != "" {
		query = query.And("UserID").Eq(opts.UserID)
	}
	if opts.TaskID != "" {
		query = query.And("TaskID").Eq(opts.TaskID)
	}
	if opts.Status != "" {
		query = query.And("ApplicationStatus").Eq(opts.Status)
	}
	if opts.Saved != nil {
		query = query.And("Saved").Eq(*opts.Saved)
	}
	if opts.MinScore != nil {
		query = query.And("MatchScore").Ge(*opts.MinScore)
	}

	sortField := "CreatedAt"
	if opts.OrderBy == "match_score" {
		sortField = "MatchScore"
	}
	query = query.SortBy(sortField)
	if opts.Reverse {
		query = query.Reverse()
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	var recs []foundJobRecord
	if err := s.db.Store().Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list found jobs: %w", err)
	}

	jobs := make([]*models.FoundJob, 0, len(recs))
	for i := range recs {
		j := recs[i].FoundJob
		jobs = append(jobs, &j)
	}
	return jobs, nil
}

func (s *Store) UpdateFoundJob(ctx context.Context, job *models.FoundJob) error {
	job.UpdatedAt = time.Now().UTC()
	rec := foundJobRecord{FoundJob: *job, NormalizedURL: normalizeJobURL(job.JobURL)}
	return s.db.Store().Update(job.ID, rec)
}

func (s *Store) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	var rec resumeRecord
	if err := s.db.Store().Get(id, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("resume not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return &rec.Resume, nil
}

func (s *Store) ListResumes(ctx context.Context, userID string) ([]*models.Resume, error) {
	var recs []resumeRecord
	err := s.db.Store().Find(&recs, badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	resumes := make([]*models.Resume, 0, len(recs))
	for i := range recs {
		r := recs[i].Resume
		resumes = append(resumes, &r)
	}
	return resumes, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeJobURL lowercases the URL and drops the whole query string and
// fragment. The SQLite backend drops only tracking parameters, so URLs that
// differ in other query parameters dedupe here but not under SQLite.
func normalizeJobURL(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		base := raw[:idx]
		return base
	}
	return raw
}
