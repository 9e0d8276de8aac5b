package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/quaero/internal/common"
	"golang.org/x/oauth2/clientcredentials"
)

// newAzureAuthHeader builds an authHeader function that fetches and caches
// an OAuth2 client-credentials bearer token for Azure OpenAI, refreshing it
// automatically as it nears expiry (handled internally by oauth2.TokenSource).
func newAzureAuthHeader(cfg common.ProviderConfig) (func(ctx context.Context) (string, error), error) {
	if cfg.AzureTenantID == "" || cfg.AzureClientID == "" || cfg.AzureClientSecret == "" {
		return nil, fmt.Errorf("azure_openai provider requires azure_tenant_id, azure_client_id, and azure_client_secret")
	}

	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.AzureTenantID)
	conf := &clientcredentials.Config{
		ClientID:     cfg.AzureClientID,
		ClientSecret: cfg.AzureClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"https://cognitiveservices.azure.com/.default"},
	}

	tokenSource := conf.TokenSource(context.Background())

	return func(ctx context.Context) (string, error) {
		token, err := tokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("failed to fetch azure ad token: %w", err)
		}
		return "Bearer " + token.AccessToken, nil
	}, nil
}
