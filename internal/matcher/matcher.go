// -----------------------------------------------------------------------
// Matcher - batched resume-to-job scoring orchestrator
// -----------------------------------------------------------------------

package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
	"golang.org/x/time/rate"
)

// Matcher implements interfaces.Matcher by splitting a job list into
// fixed-size batches, scoring postings within a batch sequentially, and
// running up to MaxConcurrentBatch batches at a time with an inter-batch
// sleep so provider rate limits aren't hammered.
type Matcher struct {
	llm    interfaces.LLMClient
	store  interfaces.Store
	cfg    common.MatcherConfig
	logger arbor.ILogger
}

// New builds a Matcher around the given LLM client and store.
func New(llm interfaces.LLMClient, store interfaces.Store, cfg common.MatcherConfig, logger arbor.ILogger) *Matcher {
	return &Matcher{llm: llm, store: store, cfg: cfg, logger: logger}
}

// MatchAll scores every job against resume, updating the store with each
// job's score as it completes and reporting progress after each batch.
func (m *Matcher) MatchAll(ctx context.Context, resume *models.Resume, jobs []*models.FoundJob, onBatch func(interfaces.MatchProgress)) (*models.MatcherResult, error) {
	batchSize := m.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	maxConcurrent := m.cfg.MaxConcurrentBatch
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	batches := chunk(jobs, batchSize)
	total := len(batches)

	var (
		mu             sync.Mutex
		wg             sync.WaitGroup
		successful     int
		failed         int
		scoreSum       float64
		batchesDone    int
		limiter        = make(chan struct{}, maxConcurrent)
	)

	for batchIdx, batch := range batches {
		batchIdx, batch := batchIdx, batch

		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case limiter <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-limiter }()

			if batchIdx > 0 && m.cfg.InterBatchSleep > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.cfg.InterBatchSleep):
				}
			}

			batchSuccess, batchFailed, batchScoreSum := m.runBatch(ctx, resume, batch)

			mu.Lock()
			successful += batchSuccess
			failed += batchFailed
			scoreSum += batchScoreSum
			batchesDone++
			done := batchesDone
			mu.Unlock()

			if onBatch != nil {
				onBatch(interfaces.MatchProgress{
					BatchesDone:    done,
					BatchesTotal:   total,
					SuccessfulJobs: successful,
					FailedJobs:     failed,
				})
			}
		}()
	}

	wg.Wait()

	result := &models.MatcherResult{
		TotalJobs:      len(jobs),
		SuccessfulJobs: successful,
		FailedJobs:     failed,
	}
	if successful > 0 {
		result.AverageScore = scoreSum / float64(successful)
	}

	if len(jobs) > 0 && successful == 0 {
		return result, fmt.Errorf("matcher failed to score any of %d jobs", len(jobs))
	}

	return result, nil
}

// runBatch scores each job in batch sequentially against resume,
// persisting the result. Jobs are processed one at a time within a batch,
// paced by a rate.Limiter created for this batch (one call per 200ms);
// batches running at once under MaxConcurrentBatch each have their own
// limiter and are not paced against each other.
func (m *Matcher) runBatch(ctx context.Context, resume *models.Resume, batch []*models.FoundJob) (success, fail int, scoreSum float64) {
	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

	for _, job := range batch {
		if err := limiter.Wait(ctx); err != nil {
			fail++
			continue
		}

		result, err := m.llm.ScoreResume(ctx, resume, job)
		if err != nil {
			m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to score job")
			fail++
			continue
		}

		job.MatchScore = &result.MatchingScore
		job.MatchRationale = result.Summary
		if details, marshalErr := marshalDetails(result); marshalErr == nil {
			job.AIAnalysis = details
		}
		job.UpdatedAt = time.Now()

		if err := m.store.UpdateFoundJob(ctx, job); err != nil {
			m.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist match score")
			fail++
			continue
		}

		success++
		scoreSum += result.MatchingScore
	}

	return success, fail, scoreSum
}

func marshalDetails(result *models.MatchResult) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"matching_score":  result.MatchingScore,
		"summary":         result.Summary,
		"strengths":       result.Strengths,
		"gaps":            result.Gaps,
		"recommendations": result.Recommendations,
		"reasoning":       result.Reasoning,
	})
}

func chunk(jobs []*models.FoundJob, size int) [][]*models.FoundJob {
	if len(jobs) == 0 {
		return nil
	}
	var batches [][]*models.FoundJob
	for i := 0; i < len(jobs); i += size {
		end := i + size
		if end > len(jobs) {
			end = len(jobs)
		}
		batches = append(batches, jobs[i:end])
	}
	return batches
}
