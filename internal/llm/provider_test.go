package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
)

func TestNewClientRejectsUnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), interfaces.ProviderName("watson"), common.ProvidersConfig{}, nil, arbor.NewLogger())
	assert.Error(t, err)
}

func TestNewClientOllamaNeedsNoAPIKey(t *testing.T) {
	cfg := common.ProvidersConfig{Ollama: common.ProviderConfig{BaseURL: "http://localhost:11434"}}
	client, err := NewClient(context.Background(), interfaces.ProviderOllama, cfg, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, interfaces.ProviderOllama, client.Provider())
}

func TestNewClientOpenAIRequiresAPIKeyAtCallTime(t *testing.T) {
	cfg := common.ProvidersConfig{OpenAI: common.ProviderConfig{}}
	client, err := NewClient(context.Background(), interfaces.ProviderOpenAI, cfg, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, interfaces.ProviderOpenAI, client.Provider())
}
