package llm

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
)

// NewDefaultClient builds the LLMClient for cfg.Providers.DefaultProvider.
func NewDefaultClient(ctx context.Context, cfg *common.Config, audit AuditLogger, logger arbor.ILogger) (interfaces.LLMClient, error) {
	provider := interfaces.ProviderName(cfg.Providers.DefaultProvider)
	return NewClient(ctx, provider, cfg.Providers, audit, logger)
}
