// -----------------------------------------------------------------------
// App - composition root wiring storage, LLM client, scraper, matcher,
// and the task engine into one unit the HTTP server depends on
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/engine"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/jobagent"
	"github.com/ternarybob/quaero/internal/llm"
	"github.com/ternarybob/quaero/internal/matcher"
	"github.com/ternarybob/quaero/internal/models"
	"github.com/ternarybob/quaero/internal/scraper"
	"github.com/ternarybob/quaero/internal/storage"
)

// App holds every long-lived collaborator the HTTP layer needs.
type App struct {
	Config     *common.Config
	Logger     arbor.ILogger
	Store      interfaces.Store
	LLM        interfaces.LLMClient
	Scraper    interfaces.Scraper
	Engine     *engine.Engine
	newMatcher jobagent.MatcherFactory
}

// New wires up the application: storage, the default LLM provider, the
// browser scraper, the matcher factory, and the task engine with its
// three registered workers. A scraper initialization failure is logged
// but non-fatal (scraping tasks will fail fast instead), since a host
// without a Chrome runtime should still be able to serve matching-only
// traffic.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	store, err := storage.NewStore(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	auditLogger := llm.NoopAuditLogger{}
	defaultLLM, err := llm.NewDefaultClient(ctx, cfg, auditLogger, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	var scraperSvc interfaces.Scraper
	browserScraper, err := scraper.New(cfg.Scraper, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("scraper backend unavailable, seek_scraper and job_agent tasks will fail until a browser runtime is present")
	} else {
		scraperSvc = browserScraper
	}

	newMatcher := func(aiModel string) (interfaces.Matcher, func(), error) {
		provider := interfaces.ProviderName(aiModel)
		if provider == "" || provider == interfaces.ProviderName(cfg.Providers.DefaultProvider) {
			return matcher.New(defaultLLM, store, cfg.Matcher, logger), func() {}, nil
		}

		client, err := llm.NewClient(ctx, provider, cfg.Providers, auditLogger, logger)
		if err != nil {
			return nil, nil, err
		}
		return matcher.New(client, store, cfg.Matcher, logger), func() { client.Close() }, nil
	}

	taskEngine := engine.New(cfg, store, logger)

	deps := jobagent.Deps{
		Store:      store,
		Scraper:    scraperSvc,
		NewMatcher: newMatcher,
		Logger:     logger,
	}
	taskEngine.RegisterWorker(models.TaskTypeSeekScraper, jobagent.ScraperWorker(deps))
	taskEngine.RegisterWorker(models.TaskTypeResumeJobMatching, jobagent.MatcherWorker(deps))
	taskEngine.RegisterWorker(models.TaskTypeJobAgent, jobagent.JobAgentWorker(deps))
	taskEngine.Start()

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		LLM:        defaultLLM,
		Scraper:    scraperSvc,
		Engine:     taskEngine,
		newMatcher: newMatcher,
	}, nil
}

// Close shuts down the task engine and releases storage/browser/LLM
// resources in reverse order of acquisition.
func (a *App) Close() error {
	a.Engine.Stop()

	if a.Scraper != nil {
		if err := a.Scraper.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("error closing scraper")
		}
	}
	if err := a.LLM.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("error closing LLM client")
	}
	return a.Store.Close()
}
