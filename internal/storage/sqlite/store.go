package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

// ErrTaskNotFound is returned when a task lookup misses.
var ErrTaskNotFound = errors.New("task not found")

// ErrFoundJobNotFound is returned when a found-job lookup misses.
var ErrFoundJobNotFound = errors.New("found job not found")

// ErrInvalidTransition is returned when an update would violate the task
// status state machine.
var ErrInvalidTransition = errors.New("invalid task status transition")

// Store implements interfaces.Store against a SQLite database.
type Store struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewStore creates a new SQLite-backed Store.
func NewStore(db *SQLiteDB, logger arbor.ILogger) interfaces.Store {
	return &Store{db: db, logger: logger}
}

// retryWithExponentialBackoff retries an operation on SQLITE_BUSY errors,
// doubling the delay on each attempt up to maxAttempts.
func retryWithExponentialBackoff(ctx context.Context, operation func() error, maxAttempts int, initialDelay time.Duration, logger arbor.ILogger) error {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		msg := lastErr.Error()
		if !strings.Contains(msg, "database is locked") && !strings.Contains(msg, "SQLITE_BUSY") {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		logger.Warn().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("database busy, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("operation failed after %d attempts: %w", maxAttempts, lastErr)
}

func unixToTimePtr(ns sql.NullInt64) *time.Time {
	if !ns.Valid || ns.Int64 == 0 {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func timeToUnix(t time.Time) int64 {
	return t.UTC().Unix()
}

func timePtrToNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: timeToUnix(*t), Valid: true}
}

// normalizeJobURL strips tracking query parameters and fragment so the same
// posting found via different query strings collapses to one dedup key.
func normalizeJobURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") || lower == "ref" || lower == "src" || lower == "gclid" || lower == "fbclid" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return strings.ToLower(u.Scheme + "://" + u.Host + u.Path + "?" + u.RawQuery)
}

// --- Task operations ---

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	return retryWithExponentialBackoff(ctx, func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			INSERT INTO agent_tasks (
				id, user_id, type, status, description, config_json, result_json, error_message,
				recurrence_cron, next_execution_at, created_at, updated_at, started_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.UserID, string(task.Type), string(task.Status), nullableString(task.Description),
			string(task.Config), nullableJSON(task.Result), nullableString(task.ErrorMessage),
			nullableString(task.RecurrenceCron), timePtrToNull(task.NextExecutionAt),
			timeToUnix(task.CreatedAt), timeToUnix(task.UpdatedAt),
			timePtrToNull(task.StartedAt), timePtrToNull(task.FinishedAt),
		)
		return err
	}, 5, 50*time.Millisecond, s.logger)
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, user_id, type, status, description, config_json, result_json, error_message,
			recurrence_cron, next_execution_at, created_at, updated_at, started_at, finished_at
		FROM agent_tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, opts interfaces.TaskListOptions) ([]*models.Task, error) {
	query := `SELECT id, user_id, type, status, description, config_json, result_json, error_message,
		recurrence_cron, next_execution_at, created_at, updated_at, started_at, finished_at
		FROM agent_tasks WHERE 1=1`
	args := []interface{}{}

	if opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.Type != "" {
		query += " AND type = ?"
		args = append(args, string(opts.Type))
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask persists changes to a task. The status column is only updated
// if the transition from the currently-stored status is valid, preventing
// a lagging caller from reviving a cancelled or completed task.
func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.GetTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if existing.Status != task.Status && !existing.CanTransitionTo(task.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, task.Status)
	}

	task.UpdatedAt = time.Now().UTC()

	return retryWithExponentialBackoff(ctx, func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE agent_tasks SET
				status = ?, config_json = ?, result_json = ?, error_message = ?,
				recurrence_cron = ?, next_execution_at = ?, updated_at = ?, started_at = ?, finished_at = ?
			WHERE id = ?`,
			string(task.Status), string(task.Config), nullableJSON(task.Result), nullableString(task.ErrorMessage),
			nullableString(task.RecurrenceCron), timePtrToNull(task.NextExecutionAt),
			timeToUnix(task.UpdatedAt), timePtrToNull(task.StartedAt), timePtrToNull(task.FinishedAt),
			task.ID,
		)
		return err
	}, 5, 50*time.Millisecond, s.logger)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row *sql.Row) (*models.Task, error) {
	return scanTaskGeneric(row)
}

func scanTaskRows(rows *sql.Rows) (*models.Task, error) {
	return scanTaskGeneric(rows)
}

func scanTaskGeneric(row rowScanner) (*models.Task, error) {
	var (
		task                                   models.Task
		taskType, status                       string
		description                             sql.NullString
		configJSON                             string
		resultJSON, errMsg, recurrenceCron     sql.NullString
		nextExec, createdAt, updatedAt         sql.NullInt64
		startedAt, finishedAt                  sql.NullInt64
	)

	err := row.Scan(&task.ID, &task.UserID, &taskType, &status, &description, &configJSON, &resultJSON, &errMsg,
		&recurrenceCron, &nextExec, &createdAt, &updatedAt, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	task.Type = models.TaskType(taskType)
	task.Status = models.TaskStatus(status)
	task.Description = description.String
	task.Config = json.RawMessage(configJSON)
	if resultJSON.Valid {
		task.Result = json.RawMessage(resultJSON.String)
	}
	task.ErrorMessage = errMsg.String
	task.RecurrenceCron = recurrenceCron.String
	task.NextExecutionAt = unixToTimePtr(nextExec)
	task.CreatedAt = time.Unix(createdAt.Int64, 0).UTC()
	task.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	task.StartedAt = unixToTimePtr(startedAt)
	task.FinishedAt = unixToTimePtr(finishedAt)

	return &task, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// --- FoundJob operations ---

func (s *Store) InsertFoundJobs(ctx context.Context, jobs []*models.FoundJob) ([]*models.FoundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted []*models.FoundJob
	for _, job := range jobs {
		now := time.Now().UTC()
		job.CreatedAt = now
		job.UpdatedAt = now
		if job.ApplicationStatus == "" {
			job.ApplicationStatus = models.FoundJobStatusAgentFound
		}
		normalized := normalizeJobURL(job.JobURL)

		err := retryWithExponentialBackoff(ctx, func() error {
			_, err := s.db.DB().ExecContext(ctx, `
				INSERT INTO agent_found_jobs (
					id, user_id, task_id, title, company, location, job_url, job_url_normalized,
					description, salary, work_type, source_platform, posted_at, match_score, match_rationale,
					ai_analysis, application_status, saved, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				job.ID, job.UserID, job.TaskID, job.Title, job.Company, job.Location, job.JobURL, normalized,
				job.Description, job.Salary, job.WorkType, job.SourcePlatform, timePtrToNull(job.PostedAt), job.MatchScore,
				nullableString(job.MatchRationale), nullableJSON(job.AIAnalysis), string(job.ApplicationStatus), job.Saved,
				timeToUnix(job.CreatedAt), timeToUnix(job.UpdatedAt),
			)
			return err
		}, 5, 50*time.Millisecond, s.logger)

		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				continue // duplicate job_url for this user, skip silently
			}
			return inserted, fmt.Errorf("failed to insert found job: %w", err)
		}
		inserted = append(inserted, job)
	}
	return inserted, nil
}

func (s *Store) GetFoundJob(ctx context.Context, id string) (*models.FoundJob, error) {
	row := s.db.DB().QueryRowContext(ctx, foundJobSelect+" WHERE id = ?", id)
	return scanFoundJob(row)
}

const foundJobSelect = `SELECT id, user_id, task_id, title, company, location, job_url, description,
	salary, work_type, source_platform, posted_at, match_score, match_rationale, ai_analysis,
	application_status, saved, created_at, updated_at
	FROM agent_found_jobs`

func (s *Store) ListFoundJobs(ctx context.Context, opts interfaces.FoundJobListOptions) ([]*models.FoundJob, error) {
	query := foundJobSelect + " WHERE 1=1"
	args := []interface{}{}

	if opts.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, opts.UserID)
	}
	if opts.TaskID != "" {
		query += " AND task_id = ?"
		args = append(args, opts.TaskID)
	}
	if opts.Status != "" {
		query += " AND application_status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.Saved != nil {
		query += " AND saved = ?"
		args = append(args, *opts.Saved)
	}
	if opts.MinScore != nil {
		query += " AND match_score >= ?"
		args = append(args, *opts.MinScore)
	}

	orderBy := "created_at"
	if opts.OrderBy == "match_score" {
		orderBy = "match_score"
	}
	query += " ORDER BY " + orderBy
	if opts.Reverse {
		query += " DESC"
	} else {
		query += " ASC"
	}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list found jobs: %w", err)
	}
	defer rows.Close()

	var out []*models.FoundJob
	for rows.Next() {
		job, err := scanFoundJobRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *Store) UpdateFoundJob(ctx context.Context, job *models.FoundJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.UpdatedAt = time.Now().UTC()

	return retryWithExponentialBackoff(ctx, func() error {
		_, err := s.db.DB().ExecContext(ctx, `
			UPDATE agent_found_jobs SET
				match_score = ?, match_rationale = ?, ai_analysis = ?, application_status = ?, saved = ?, updated_at = ?
			WHERE id = ?`,
			job.MatchScore, nullableString(job.MatchRationale), nullableJSON(job.AIAnalysis),
			string(job.ApplicationStatus), job.Saved, timeToUnix(job.UpdatedAt), job.ID,
		)
		return err
	}, 5, 50*time.Millisecond, s.logger)
}

func scanFoundJob(row *sql.Row) (*models.FoundJob, error) {
	return scanFoundJobGeneric(row)
}

func scanFoundJobRows(rows *sql.Rows) (*models.FoundJob, error) {
	return scanFoundJobGeneric(rows)
}

func scanFoundJobGeneric(row rowScanner) (*models.FoundJob, error) {
	var (
		job                                                        models.FoundJob
		applicationStatus                                         string
		description, salary, workType, sourcePlatform, rationale sql.NullString
		aiAnalysis                                                 sql.NullString
		matchScore                                                 sql.NullFloat64
		postedAt                                                   sql.NullInt64
		saved                                                       bool
		createdAt, updatedAt                                       int64
	)

	err := row.Scan(&job.ID, &job.UserID, &job.TaskID, &job.Title, &job.Company, &job.Location, &job.JobURL,
		&description, &salary, &workType, &sourcePlatform, &postedAt, &matchScore, &rationale, &aiAnalysis,
		&applicationStatus, &saved, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFoundJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan found job: %w", err)
	}

	job.Description = description.String
	job.Salary = salary.String
	job.WorkType = workType.String
	job.SourcePlatform = sourcePlatform.String
	job.MatchRationale = rationale.String
	if aiAnalysis.Valid {
		job.AIAnalysis = json.RawMessage(aiAnalysis.String)
	}
	if matchScore.Valid {
		job.MatchScore = &matchScore.Float64
	}
	job.PostedAt = unixToTimePtr(postedAt)
	job.ApplicationStatus = models.FoundJobStatus(applicationStatus)
	job.Saved = saved
	job.CreatedAt = time.Unix(createdAt, 0).UTC()
	job.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &job, nil
}

// --- Resume operations ---

func (s *Store) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, user_id, name, content, created_at FROM agent_resumes WHERE id = ?`, id)

	var r models.Resume
	var createdAt int64
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resume not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resume: %w", err)
	}
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &r, nil
}

func (s *Store) ListResumes(ctx context.Context, userID string) ([]*models.Resume, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, user_id, name, content, created_at FROM agent_resumes WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var out []*models.Resume
	for rows.Next() {
		var r models.Resume
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
