// -----------------------------------------------------------------------
// Scraper - browser-driven job board harvester
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

// Selectors for the target job board's list and detail pages. The target
// site is a deployment parameter (spec §4.C), not a public API; these
// match the current markup of the configured search_base_url and may need
// updating if the site's markup changes.
const (
	cardSelector        = "article[data-card-type='JobCard']"
	cardTitleSelector    = "a[data-automation='jobTitle']"
	cardCompanySelector  = "a[data-automation='jobCompany']"
	cardLocationSelector = "a[data-automation='jobLocation']"
	cardSalarySelector   = "span[data-automation='jobSalary']"
	nextPageSelector     = "a[data-automation='page-next']"
	detailDescSelector   = "div[data-automation='jobAdDetails']"
	detailWorkTypeSelector = "span[data-automation='job-detail-work-type']"

	// sourcePlatform identifies the job board this scraper targets, stored
	// on every FoundJob it produces.
	sourcePlatform = "seek"
)

// Scraper implements interfaces.Scraper against a headless Chrome session.
// The browser session is exclusive to a single Scraper instance for the
// life of one Scrape call; sessions are never shared across concurrent
// scrapes.
type Scraper struct {
	pool        *ChromeDPPool
	rateLimiter *RateLimiter
	retryPolicy *RetryPolicy
	cfg         common.ScraperConfig
	logger      arbor.ILogger
}

// New builds a Scraper with a single-instance browser pool, per the
// "exclusive session" invariant.
func New(cfg common.ScraperConfig, logger arbor.ILogger) (*Scraper, error) {
	poolCfg := ChromeDPPoolConfig{
		MaxInstances:       1,
		UserAgent:          cfg.UserAgent,
		Headless:           cfg.Headless,
		DisableGPU:         cfg.DisableGPU,
		NoSandbox:          cfg.NoSandbox,
		RequestTimeout:     cfg.NavigationTimeout,
		JavaScriptWaitTime: 500 * time.Millisecond,
	}

	pool := NewChromeDPPool(poolCfg, logger)
	if err := pool.InitBrowserPool(poolCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize browser pool: %w", err)
	}

	retryPolicy := NewRetryPolicy()
	retryPolicy.MaxAttempts = cfg.MaxNavRetries
	if retryPolicy.MaxAttempts <= 0 {
		retryPolicy.MaxAttempts = 3
	}

	return &Scraper{
		pool:        pool,
		rateLimiter: NewRateLimiter(cfg.MinHumanDelay),
		retryPolicy: retryPolicy,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Close releases the underlying browser pool.
func (s *Scraper) Close() error {
	return s.pool.ShutdownBrowserPool()
}

type titleCursor struct {
	title     string
	page      int
	exhausted bool
}

// Scrape walks search result pages for each keyword, round-robin, emitting
// newly discovered postings to onPage as each page is extracted.
func (s *Scraper) Scrape(ctx context.Context, req interfaces.ScrapeRequest, onPage func([]*models.FoundJob, interfaces.ScrapeProgress) bool) (*models.ScraperResult, error) {
	titles := splitTitles(req.Keywords)
	if len(titles) == 0 {
		return &models.ScraperResult{}, nil
	}
	if req.MaxPostings == 0 {
		return &models.ScraperResult{}, nil
	}

	browserCtx, release, err := s.pool.GetBrowser()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer release()

	cursors := make([]*titleCursor, len(titles))
	for i, t := range titles {
		cursors[i] = &titleCursor{title: t, page: 1}
	}

	seen := make(map[string]bool)
	var foundIDs []string
	jobsFound := 0
	consecutiveFailures := 0
	maxConsecutiveFail := s.cfg.MaxConsecutiveFail
	if maxConsecutiveFail <= 0 {
		maxConsecutiveFail = 3
	}
	pageNumber := 0
	stoppedEarly := false
	stopReason := ""

outer:
	for {
		anyActive := false

		for _, c := range cursors {
			if c.exhausted {
				continue
			}
			anyActive = true

			select {
			case <-ctx.Done():
				stoppedEarly = true
				stopReason = "cancelled"
				break outer
			default:
			}

			if req.MaxPostings > 0 && jobsFound >= req.MaxPostings {
				stoppedEarly = false
				stopReason = "max_postings_reached"
				break outer
			}

			searchURL := s.buildSearchURL(c.title, req.Location, c.page)

			if err := s.rateLimiter.Wait(ctx, searchURL); err != nil {
				stoppedEarly = true
				stopReason = "cancelled"
				break outer
			}

			cards, hasNext, fetchErr := s.fetchPage(ctx, browserCtx, searchURL)
			if fetchErr != nil {
				consecutiveFailures++
				s.logger.Warn().Err(fetchErr).Str("title", c.title).Int("page", c.page).Msg("navigation failed, skipping rest of this title")
				c.exhausted = true
				if consecutiveFailures >= maxConsecutiveFail {
					return nil, fmt.Errorf("aborting after %d consecutive navigation failures: %w", consecutiveFailures, fetchErr)
				}
				continue
			}
			consecutiveFailures = 0
			pageNumber++

			if len(cards) == 0 {
				c.exhausted = true
				continue
			}

			var fresh []*models.FoundJob
			for _, card := range cards {
				normalized := normalizeJobURL(card.JobURL)
				if normalized == "" || seen[normalized] {
					continue
				}
				seen[normalized] = true

				s.enrichWithDetail(ctx, browserCtx, card)

				card.UserID = req.UserID
				card.TaskID = req.TaskID
				card.SourcePlatform = sourcePlatform
				card.ApplicationStatus = models.FoundJobStatusAgentFound
				fresh = append(fresh, card)
				jobsFound++

				if req.MaxPostings > 0 && jobsFound >= req.MaxPostings {
					break
				}
			}

			if len(fresh) > 0 {
				cont := onPage(fresh, interfaces.ScrapeProgress{PageNumber: pageNumber, JobsSoFar: jobsFound})
				if !cont {
					stoppedEarly = true
					stopReason = "caller_stopped"
					break outer
				}
			}

			if !hasNext || (req.MaxPostings > 0 && jobsFound >= req.MaxPostings) {
				c.exhausted = true
			} else {
				c.page++
			}

			if err := HumanDelay(ctx, s.cfg.MinHumanDelay, s.cfg.MaxHumanDelay); err != nil {
				stoppedEarly = true
				stopReason = "cancelled"
				break outer
			}
		}

		if !anyActive {
			break
		}
	}

	return &models.ScraperResult{
		JobsFound:    jobsFound,
		FoundJobIDs:  foundIDs,
		StoppedEarly: stoppedEarly,
		StopReason:   stopReason,
	}, nil
}

// buildSearchURL composes a search URL from the configured base and the
// (title, location, page) tuple.
func (s *Scraper) buildSearchURL(title, location string, page int) string {
	base := strings.TrimRight(s.cfg.SearchBaseURL, "/")
	q := url.Values{}
	q.Set("keywords", title)
	if location != "" {
		q.Set("where", location)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return base + "?" + q.Encode()
}

// fetchPage navigates to searchURL with retry/backoff on transient
// failures, then extracts result cards from the rendered DOM.
func (s *Scraper) fetchPage(ctx context.Context, browserCtx context.Context, searchURL string) ([]*models.FoundJob, bool, error) {
	var html string

	_, err := s.retryPolicy.ExecuteWithRetry(ctx, s.logger, func() (int, error) {
		navCtx, cancel := context.WithTimeout(browserCtx, s.cfg.NavigationTimeout)
		defer cancel()

		runErr := chromedp.Run(navCtx,
			chromedp.Navigate(searchURL),
			chromedp.Sleep(300*time.Millisecond),
			chromedp.OuterHTML("html", &html),
		)
		if runErr != nil {
			return 0, runErr
		}
		return 200, nil
	})
	if err != nil {
		return nil, false, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse result page: %w", err)
	}

	var jobs []*models.FoundJob
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		job := extractCard(card)
		if job != nil {
			jobs = append(jobs, job)
		}
	})

	hasNext := doc.Find(nextPageSelector).Length() > 0

	return jobs, hasNext, nil
}

// extractCard pulls the fields visible on a result card. Missing fields
// default to "N/A" rather than dropping the listing (spec §4.C.3).
func extractCard(card *goquery.Selection) *models.FoundJob {
	title := textOrDefault(card, cardTitleSelector)
	if title == "N/A" {
		return nil // a card with no title is not a usable listing
	}
	jobURL, _ := card.Find(cardTitleSelector).Attr("href")

	return &models.FoundJob{
		Title:    title,
		Company:  textOrDefault(card, cardCompanySelector),
		Location: textOrDefault(card, cardLocationSelector),
		Salary:   textOrDefault(card, cardSalarySelector),
		JobURL:   jobURL,
	}
}

// enrichWithDetail opens the job's detail page to capture the full
// description and work type. Failures here are per-listing and
// non-fatal: the listing is kept with whatever fields the card provided.
func (s *Scraper) enrichWithDetail(ctx context.Context, browserCtx context.Context, job *models.FoundJob) {
	if job.JobURL == "" {
		return
	}

	var html string
	navCtx, cancel := context.WithTimeout(browserCtx, s.cfg.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(job.JobURL),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		s.logger.Debug().Err(err).Str("job_url", job.JobURL).Msg("failed to load job detail page, keeping card fields only")
		job.Description = "N/A"
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		job.Description = "N/A"
		return
	}

	job.Description = textOrDefault(doc.Selection, detailDescSelector)
	job.WorkType = textOrDefault(doc.Selection, detailWorkTypeSelector)
}

func textOrDefault(sel *goquery.Selection, selector string) string {
	text := strings.TrimSpace(sel.Find(selector).First().Text())
	if text == "" {
		return "N/A"
	}
	return text
}

// splitTitles parses a comma-separated job_titles string into a trimmed,
// non-empty list.
func splitTitles(raw string) []string {
	parts := strings.Split(raw, ",")
	titles := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			titles = append(titles, p)
		}
	}
	return titles
}

// normalizeJobURL strips tracking query parameters and the fragment so
// the same posting reached via different campaign links dedupes to one
// normalized key.
func normalizeJobURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}

	q := u.Query()
	for _, tracked := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "ref", "src", "gclid", "fbclid"} {
		q.Del(tracked)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return strings.ToLower(u.String())
}
