package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
)

// openAIChatClient talks to any vendor that implements the OpenAI
// chat-completions wire format: OpenAI itself, DeepSeek, Azure OpenAI
// (behind an oauth2 bearer token), and a local Ollama instance.
type openAIChatClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float32
	useToolCall bool
	authHeader  func(ctx context.Context) (string, error)
	logger      arbor.ILogger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  interface{}   `json:"tool_choice,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatToolFunc `json:"function"`
}

type chatToolFunc struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const scoreToolName = "report_match_score"

func newOpenAIChatClient(cfg common.ProviderConfig, authHeader func(ctx context.Context) (string, error), logger arbor.ILogger) *openAIChatClient {
	return &openAIChatClient{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		useToolCall: cfg.SupportsToolCalls,
		authHeader:  authHeader,
		logger:      logger,
	}
}

// complete sends the prompt as a single user message and returns the raw
// text (or tool-call arguments JSON, when tool calling is enabled).
func (c *openAIChatClient) complete(ctx context.Context, prompt string) (string, error) {
	req := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}

	if c.useToolCall {
		req.Tools = []chatTool{{
			Type: "function",
			Function: chatToolFunc{
				Name:        scoreToolName,
				Description: "Report the résumé-to-job match score",
				Parameters:  matchResultSchema,
			},
		}}
		req.ToolChoice = map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": scoreToolName},
		}
	}

	retryCfg := NewDefaultRetryConfig()
	var lastErr error

	for attempt := 0; attempt <= retryCfg.MaxRetries; attempt++ {
		text, err := c.doRequest(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == retryCfg.MaxRetries {
			break
		}
		if !IsRateLimitError(err) && !IsRetryableServerError(err) {
			return "", err
		}

		backoff := retryCfg.CalculateBackoff(attempt, ExtractRetryDelay(err))
		c.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(err).Msg("retrying chat completion request")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("chat completion failed after %d retries: %w", retryCfg.MaxRetries, lastErr)
}

func (c *openAIChatClient) doRequest(ctx context.Context, body chatCompletionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.authHeader != nil {
		token, err := c.authHeader(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to resolve auth token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal chat completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices in chat completion response")
	}

	choice := parsed.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		return choice.Message.ToolCalls[0].Function.Arguments, nil
	}
	if choice.Message.Content == "" {
		return "", fmt.Errorf("empty content in chat completion response")
	}
	return choice.Message.Content, nil
}
