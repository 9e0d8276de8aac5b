package models

import (
	"encoding/json"
	"time"
)

// TaskType identifies which pipeline a task runs.
type TaskType string

const (
	TaskTypeSeekScraper        TaskType = "seek_scraper"
	TaskTypeResumeJobMatching  TaskType = "resume_job_matching"
	TaskTypeJobAgent           TaskType = "job_agent"
)

// TaskStatus is the task's position in its lifecycle state machine.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task is a unit of scheduled or on-demand work owned by a single user.
type Task struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Type             TaskType        `json:"type"`
	Status           TaskStatus      `json:"status"`
	Description      string          `json:"description,omitempty"` // human label, caller-supplied at creation
	Config           json.RawMessage `json:"config"`
	Result           json.RawMessage `json:"result,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	RecurrenceCron   string          `json:"recurrence_cron,omitempty"`
	NextExecutionAt  *time.Time      `json:"next_execution_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
}

// ToJSON serializes the task for storage.
func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// FromJSON populates the task from stored JSON.
func (t *Task) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}

// CanTransitionTo reports whether the task's state machine allows moving
// from its current status to the given one.
func (t *Task) CanTransitionTo(next TaskStatus) bool {
	switch t.Status {
	case TaskStatusPending:
		return next == TaskStatusRunning || next == TaskStatusCancelled
	case TaskStatusRunning:
		return next == TaskStatusCompleted || next == TaskStatusFailed || next == TaskStatusCancelled || next == TaskStatusPaused
	case TaskStatusPaused:
		return next == TaskStatusRunning || next == TaskStatusCancelled
	default:
		return false
	}
}

// SeekScraperConfig is the Config payload for a seek_scraper task.
type SeekScraperConfig struct {
	Keywords    string `json:"keywords"`
	Location    string `json:"location"`
	MaxPostings int    `json:"max_postings"`
}

// ResumeJobMatchingConfig is the Config payload for a resume_job_matching task.
type ResumeJobMatchingConfig struct {
	ResumeID string   `json:"resume_id"`
	JobIDs   []string `json:"job_ids"`
	AIModel  string   `json:"ai_model,omitempty"` // provider name; empty uses the deployment default
}

// JobAgentConfig is the Config payload for a composite job_agent task.
type JobAgentConfig struct {
	ResumeID    string `json:"resume_id"`
	Keywords    string `json:"keywords"`
	Location    string `json:"location"`
	MaxPostings int    `json:"max_postings"`
	AIModel     string `json:"ai_model,omitempty"` // provider name; empty uses the deployment default
}

// JobAgentResult is the Result payload produced by a job_agent task.
type JobAgentResult struct {
	Stage              string   `json:"stage"` // "scraping" (no postings found) | "completed"; a failed run stores no Result, and its ErrorMessage starts with "stage scraping:" or "stage matching:"
	JobsFound          int      `json:"jobs_found"`
	SuccessfulAnalyses int      `json:"successful_analyses"`
	FailedAnalyses     int      `json:"failed_analyses"`
	AverageScore       int      `json:"average_score"`
	FoundJobIDs        []string `json:"found_job_ids,omitempty"`
}

// ScraperResult is the Result payload produced by a seek_scraper task.
type ScraperResult struct {
	JobsFound   int      `json:"jobs_found"`
	FoundJobIDs []string `json:"found_job_ids"`
	StoppedEarly bool    `json:"stopped_early"`
	StopReason   string  `json:"stop_reason,omitempty"`
}

// MatcherResult is the Result payload produced by a resume_job_matching task.
type MatcherResult struct {
	TotalJobs      int     `json:"total_jobs"`
	SuccessfulJobs int     `json:"successful_jobs"`
	FailedJobs     int     `json:"failed_jobs"`
	AverageScore   float64 `json:"average_score"`
}
