package interfaces

import (
	"context"

	"github.com/ternarybob/quaero/internal/models"
)

// ScrapeRequest describes one search run against a job board.
type ScrapeRequest struct {
	Keywords    string
	Location    string
	MaxPostings int
	UserID      string
	TaskID      string
}

// ScrapeProgress is reported by the scraper as it walks result pages, so
// the engine can persist partial results and check cancellation/deadline.
type ScrapeProgress struct {
	PageNumber  int
	JobsSoFar   int
	StoppedEarly bool
	StopReason   string
}

// Scraper drives a headless browser session against a job board and
// returns the postings it extracted.
type Scraper interface {
	// Scrape runs the search and calls onPage after each page is extracted,
	// allowing the caller to persist incrementally and decide whether to
	// continue (returning false from onPage stops the scrape early).
	Scrape(ctx context.Context, req ScrapeRequest, onPage func(jobs []*models.FoundJob, progress ScrapeProgress) bool) (*models.ScraperResult, error)
	Close() error
}
