package interfaces

import (
	"context"

	"github.com/ternarybob/quaero/internal/models"
)

// ProviderName identifies one of the supported LLM vendors.
type ProviderName string

const (
	ProviderOpenAI      ProviderName = "openai"
	ProviderDeepSeek    ProviderName = "deepseek"
	ProviderGoogle      ProviderName = "google"
	ProviderAzureOpenAI ProviderName = "azure_openai"
	ProviderOllama      ProviderName = "ollama"
)

// LLMClient scores a résumé against a job posting using a configured
// provider, returning a structured MatchResult regardless of whether the
// underlying vendor natively supports function calling.
type LLMClient interface {
	ScoreResume(ctx context.Context, resume *models.Resume, job *models.FoundJob) (*models.MatchResult, error)
	Provider() ProviderName
	Close() error
}
