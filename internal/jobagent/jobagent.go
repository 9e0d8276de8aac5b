// -----------------------------------------------------------------------
// Job Agent - worker functions binding Scraper/Matcher/Store into the
// three task types the engine dispatches
// -----------------------------------------------------------------------

package jobagent

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

// MatcherFactory builds a Matcher bound to the requested provider name,
// falling back to the deployment's default provider when aiModel is
// empty. Each call may construct a fresh LLM client, since a task's
// ai_model field can ask for any of the five configured providers rather
// than whatever provider the process was started with.
type MatcherFactory func(aiModel string) (interfaces.Matcher, func(), error)

// Deps bundles the collaborators every worker needs. A single instance is
// shared across task dispatches; the scraper field may be nil if no
// browser backend could be initialized, in which case scraping tasks
// fail fast rather than the process refusing to start.
type Deps struct {
	Store       interfaces.Store
	Scraper     interfaces.Scraper
	NewMatcher  MatcherFactory
	Logger      arbor.ILogger
}

// ScraperWorker runs the seek_scraper task type: a single scraper pass
// whose results are persisted as they're discovered.
func ScraperWorker(deps Deps) interfaces.Worker {
	return func(rc *interfaces.RunContext) (interface{}, error) {
		var cfg models.SeekScraperConfig
		if err := json.Unmarshal(rc.Task.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid seek_scraper config: %w", err)
		}

		if deps.Scraper == nil {
			return nil, fmt.Errorf("scraper backend is not available")
		}

		result, err := runScrape(rc, deps, cfg.Keywords, cfg.Location, cfg.MaxPostings)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// MatcherWorker runs the resume_job_matching task type: scoring an
// explicit set of already-discovered jobs against a résumé.
func MatcherWorker(deps Deps) interfaces.Worker {
	return func(rc *interfaces.RunContext) (interface{}, error) {
		var cfg models.ResumeJobMatchingConfig
		if err := json.Unmarshal(rc.Task.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid resume_job_matching config: %w", err)
		}

		resume, err := deps.Store.GetResume(rc.Context, cfg.ResumeID)
		if err != nil {
			return nil, fmt.Errorf("resume lookup failed: %w", err)
		}

		jobs := make([]*models.FoundJob, 0, len(cfg.JobIDs))
		for _, id := range cfg.JobIDs {
			job, err := deps.Store.GetFoundJob(rc.Context, id)
			if err != nil {
				deps.Logger.Warn().Err(err).Str("job_id", id).Msg("skipping job not found for matching")
				continue
			}
			jobs = append(jobs, job)
		}

		matcher, closeMatcher, err := deps.NewMatcher(cfg.AIModel)
		if err != nil {
			return nil, fmt.Errorf("failed to build matcher for provider %q: %w", cfg.AIModel, err)
		}
		defer closeMatcher()

		result, err := matcher.MatchAll(rc.Context, resume, jobs, func(p interfaces.MatchProgress) {
			deps.Logger.Debug().Int("batches_done", p.BatchesDone).Int("batches_total", p.BatchesTotal).Msg("matcher progress")
		})
		if err != nil {
			return nil, fmt.Errorf("matching failed: %w", err)
		}

		return result, nil
	}
}

// JobAgentWorker runs the composite job_agent task type: résumé check,
// then scrape, then match over exactly what was just scraped.
func JobAgentWorker(deps Deps) interfaces.Worker {
	return func(rc *interfaces.RunContext) (interface{}, error) {
		var cfg models.JobAgentConfig
		if err := json.Unmarshal(rc.Task.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid job_agent config: %w", err)
		}

		resume, err := deps.Store.GetResume(rc.Context, cfg.ResumeID)
		if err != nil {
			return nil, fmt.Errorf("stage scraping: resume %q not found: %w", cfg.ResumeID, err)
		}

		if deps.Scraper == nil {
			return nil, fmt.Errorf("stage scraping: scraper backend is not available")
		}

		scraperResult, err := runScrape(rc, deps, cfg.Keywords, cfg.Location, cfg.MaxPostings)
		if err != nil {
			return nil, fmt.Errorf("stage scraping: %w", err)
		}

		if scraperResult.JobsFound == 0 {
			return &models.JobAgentResult{
				Stage:     "scraping",
				JobsFound: 0,
			}, nil
		}

		jobs := make([]*models.FoundJob, 0, len(scraperResult.FoundJobIDs))
		for _, id := range scraperResult.FoundJobIDs {
			job, err := deps.Store.GetFoundJob(rc.Context, id)
			if err != nil {
				continue
			}
			jobs = append(jobs, job)
		}

		if rc.Cancelled() {
			return nil, fmt.Errorf("stage matching: task cancelled")
		}

		matcher, closeMatcher, err := deps.NewMatcher(cfg.AIModel)
		if err != nil {
			return nil, fmt.Errorf("stage matching: failed to build matcher for provider %q: %w", cfg.AIModel, err)
		}
		defer closeMatcher()

		matchResult, err := matcher.MatchAll(rc.Context, resume, jobs, nil)
		if err != nil {
			return nil, fmt.Errorf("stage matching: %w", err)
		}

		return &models.JobAgentResult{
			Stage:              "completed",
			JobsFound:          scraperResult.JobsFound,
			SuccessfulAnalyses: matchResult.SuccessfulJobs,
			FailedAnalyses:     matchResult.FailedJobs,
			AverageScore:       int(matchResult.AverageScore + 0.5),
			FoundJobIDs:        scraperResult.FoundJobIDs,
		}, nil
	}
}

// runScrape drives one scraper pass, persisting each page of results as
// it's discovered and stopping at the first sign of cancellation.
func runScrape(rc *interfaces.RunContext, deps Deps, keywords, location string, maxPostings int) (*models.ScraperResult, error) {
	req := interfaces.ScrapeRequest{
		Keywords:    keywords,
		Location:    location,
		MaxPostings: maxPostings,
		UserID:      rc.Task.UserID,
		TaskID:      rc.Task.ID,
	}

	var insertedIDs []string

	result, err := deps.Scraper.Scrape(rc.Context, req, func(jobs []*models.FoundJob, progress interfaces.ScrapeProgress) bool {
		inserted, insertErr := deps.Store.InsertFoundJobs(rc.Context, jobs)
		if insertErr != nil {
			deps.Logger.Error().Err(insertErr).Str("task_id", rc.Task.ID).Msg("failed to persist scraped jobs, stopping scrape")
			return false
		}
		for _, j := range inserted {
			insertedIDs = append(insertedIDs, j.ID)
		}
		return !rc.Cancelled()
	})
	if err != nil {
		return nil, err
	}

	result.FoundJobIDs = insertedIDs
	result.JobsFound = len(insertedIDs)
	return result, nil
}
