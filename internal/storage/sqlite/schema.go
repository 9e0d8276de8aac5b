package sqlite

import "fmt"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS agent_tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT,
	config_json TEXT NOT NULL,
	result_json TEXT,
	error_message TEXT,
	recurrence_cron TEXT,
	next_execution_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	started_at INTEGER,
	finished_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_agent_tasks_user ON agent_tasks(user_id);
CREATE INDEX IF NOT EXISTS idx_agent_tasks_status ON agent_tasks(status);
CREATE INDEX IF NOT EXISTS idx_agent_tasks_type ON agent_tasks(type);

CREATE TABLE IF NOT EXISTS agent_found_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT,
	job_url TEXT NOT NULL,
	job_url_normalized TEXT NOT NULL,
	description TEXT,
	salary TEXT,
	work_type TEXT,
	source_platform TEXT,
	posted_at INTEGER,
	match_score REAL,
	match_rationale TEXT,
	ai_analysis TEXT,
	application_status TEXT NOT NULL,
	saved INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_found_jobs_user_url ON agent_found_jobs(user_id, job_url_normalized);
CREATE INDEX IF NOT EXISTS idx_found_jobs_task ON agent_found_jobs(task_id);
CREATE INDEX IF NOT EXISTS idx_found_jobs_score ON agent_found_jobs(match_score);

CREATE TABLE IF NOT EXISTS agent_resumes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_resumes_user ON agent_resumes(user_id);

CREATE TABLE IF NOT EXISTS llm_audit_log (
	id TEXT PRIMARY KEY,
	task_id TEXT,
	provider TEXT NOT NULL,
	request_json TEXT NOT NULL,
	response_json TEXT,
	error_message TEXT,
	duration_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_llm_audit_task ON llm_audit_log(task_id);
`

// InitSchema creates all tables and indexes if they do not already exist.
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
