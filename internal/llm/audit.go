package llm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// AuditLogger records every LLM call made while scoring a résumé against a
// job posting, so a human can later audit what the model saw and returned.
type AuditLogger interface {
	Log(ctx context.Context, taskID string, provider string, requestJSON, responseJSON string, opErr error, duration time.Duration) error
}

// SQLAuditLogger persists audit entries to the llm_audit_log table through a
// *sql.DB. The SQLite backend's schema creates that table; the Badger
// backend has no *sql.DB and no such table.
type SQLAuditLogger struct {
	db     *sql.DB
	logger arbor.ILogger
}

// NewSQLAuditLogger creates a new audit logger backed by db.
func NewSQLAuditLogger(db *sql.DB, logger arbor.ILogger) *SQLAuditLogger {
	return &SQLAuditLogger{db: db, logger: logger}
}

func (l *SQLAuditLogger) Log(ctx context.Context, taskID string, provider string, requestJSON, responseJSON string, opErr error, duration time.Duration) error {
	var errMsg string
	if opErr != nil {
		errMsg = opErr.Error()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO llm_audit_log (id, task_id, provider, request_json, response_json, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"audit_"+uuid.New().String(), taskID, provider, requestJSON, responseJSON, errMsg,
		duration.Milliseconds(), time.Now().UTC().Unix(),
	)
	if err != nil {
		l.logger.Warn().Err(err).Str("provider", provider).Msg("failed to write LLM audit log entry")
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// NoopAuditLogger discards entries; used when no SQL audit table is available.
type NoopAuditLogger struct{}

func (NoopAuditLogger) Log(ctx context.Context, taskID string, provider string, requestJSON, responseJSON string, opErr error, duration time.Duration) error {
	return nil
}
