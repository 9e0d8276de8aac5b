package interfaces

import (
	"context"

	"github.com/ternarybob/quaero/internal/models"
)

// TaskListOptions filters and paginates a ListTasks call.
type TaskListOptions struct {
	UserID string
	Type   models.TaskType
	Status models.TaskStatus
	Limit  int
	Offset int
}

// FoundJobListOptions filters and paginates a ListFoundJobs call.
type FoundJobListOptions struct {
	UserID   string
	TaskID   string
	Status   models.FoundJobStatus
	Saved    *bool
	MinScore *float64
	Limit    int
	Offset   int
	OrderBy  string // "match_score" | "created_at"
	Reverse  bool
}

// Store is the persistence gateway used by the task engine and HTTP layer.
// Two backends satisfy it: a SQLite-backed store for production durability
// and a Badger-backed store for embedded/local development.
type Store interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, opts TaskListOptions) ([]*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error

	// InsertFoundJobs stores newly scraped postings, skipping any whose
	// normalized job_url already exists for the same user. It returns the
	// jobs actually inserted (duplicates are silently skipped).
	InsertFoundJobs(ctx context.Context, jobs []*models.FoundJob) ([]*models.FoundJob, error)
	GetFoundJob(ctx context.Context, id string) (*models.FoundJob, error)
	ListFoundJobs(ctx context.Context, opts FoundJobListOptions) ([]*models.FoundJob, error)
	UpdateFoundJob(ctx context.Context, job *models.FoundJob) error

	GetResume(ctx context.Context, id string) (*models.Resume, error)
	ListResumes(ctx context.Context, userID string) ([]*models.Resume, error)

	Close() error
}
