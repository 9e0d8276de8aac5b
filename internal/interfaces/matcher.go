package interfaces

import (
	"context"

	"github.com/ternarybob/quaero/internal/models"
)

// MatchProgress is reported after each batch completes.
type MatchProgress struct {
	BatchesDone    int
	BatchesTotal   int
	SuccessfulJobs int
	FailedJobs     int
}

// Matcher scores a set of found jobs against a résumé in rate-limited
// batches, persisting each job's score as it completes.
type Matcher interface {
	MatchAll(ctx context.Context, resume *models.Resume, jobs []*models.FoundJob, onBatch func(progress MatchProgress)) (*models.MatcherResult, error)
}
