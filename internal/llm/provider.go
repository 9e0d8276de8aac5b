package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

// Client implements interfaces.LLMClient against one of the five
// configured providers. OpenAI, DeepSeek, Azure OpenAI, and Ollama share
// the OpenAI chat-completions wire format; Google is served directly via
// the genai SDK since its wire format and structured-output mechanism
// differ.
type Client struct {
	provider interfaces.ProviderName
	openai   *openAIChatClient
	google   *googleClient
	audit    AuditLogger
	logger   arbor.ILogger
}

// NewClient builds an LLMClient for the given provider name using values
// from cfg.Providers.
func NewClient(ctx context.Context, provider interfaces.ProviderName, cfg common.ProvidersConfig, audit AuditLogger, logger arbor.ILogger) (*Client, error) {
	c := &Client{provider: provider, audit: audit, logger: logger}

	switch provider {
	case interfaces.ProviderOpenAI:
		c.openai = newOpenAIChatClient(cfg.OpenAI, bearerTokenHeader(cfg.OpenAI.APIKey), logger)
	case interfaces.ProviderDeepSeek:
		c.openai = newOpenAIChatClient(cfg.DeepSeek, bearerTokenHeader(cfg.DeepSeek.APIKey), logger)
	case interfaces.ProviderOllama:
		c.openai = newOpenAIChatClient(cfg.Ollama, nil, logger) // local instance, no auth required
	case interfaces.ProviderAzureOpenAI:
		authHeader, err := newAzureAuthHeader(cfg.AzureOpenAI)
		if err != nil {
			return nil, err
		}
		c.openai = newOpenAIChatClient(cfg.AzureOpenAI, authHeader, logger)
	case interfaces.ProviderGoogle:
		google, err := newGoogleClient(ctx, cfg.Google, logger)
		if err != nil {
			return nil, err
		}
		c.google = google
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return c, nil
}

func bearerTokenHeader(apiKey string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if apiKey == "" {
			return "", fmt.Errorf("provider API key is not configured")
		}
		return "Bearer " + apiKey, nil
	}
}

// Provider returns the configured provider name.
func (c *Client) Provider() interfaces.ProviderName {
	return c.provider
}

// ScoreResume sends the résumé and job posting to the configured provider
// and returns a structured MatchResult, falling back to a best-effort parse
// of free-form text when the provider doesn't natively support structured
// output or tool calling.
func (c *Client) ScoreResume(ctx context.Context, resume *models.Resume, job *models.FoundJob) (*models.MatchResult, error) {
	resumeJSON, err := json.Marshal(map[string]string{"name": resume.Name, "content": resume.Content})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume: %w", err)
	}
	jobJSON, err := json.Marshal(map[string]string{
		"title":       job.Title,
		"company":     job.Company,
		"location":    job.Location,
		"description": job.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	prompt := renderScorePrompt(string(resumeJSON), string(jobJSON))

	start := time.Now()
	var text string
	var callErr error

	switch {
	case c.google != nil:
		text, callErr = c.google.complete(ctx, prompt)
	case c.openai != nil:
		text, callErr = c.openai.complete(ctx, prompt)
	default:
		callErr = fmt.Errorf("llm client has no configured backend")
	}
	duration := time.Since(start)

	if c.audit != nil {
		_ = c.audit.Log(ctx, job.TaskID, string(c.provider), prompt, text, callErr, duration)
	}

	if callErr != nil {
		return nil, fmt.Errorf("score resume call failed: %w", callErr)
	}

	result, parsed := parseMatchResult(text)
	if !parsed {
		c.logger.Warn().
			Str("provider", string(c.provider)).
			Str("job_id", job.ID).
			Msg("falling back to default match result after failing to parse provider response")
	}

	return result, nil
}

// Close releases provider resources.
func (c *Client) Close() error {
	if c.google != nil {
		return c.google.close()
	}
	return nil
}
