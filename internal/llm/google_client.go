package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"google.golang.org/genai"
)

// googleClient scores résumés using the Gemini API via structured JSON
// output (ResponseSchema/ResponseMIMEType), rather than OpenAI-style tool
// calling which the Gemini wire format does not support.
type googleClient struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      arbor.ILogger
}

func newGoogleClient(ctx context.Context, cfg common.ProviderConfig, logger arbor.ILogger) (*googleClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &googleClient{client: client, model: cfg.Model, temperature: cfg.Temperature, logger: logger}, nil
}

func (g *googleClient) complete(ctx context.Context, prompt string) (string, error) {
	schema, err := convertToGenaiSchema(matchResultSchema)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to convert match result schema, falling back to unstructured output")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	retryCfg := NewDefaultRetryConfig()
	var lastErr error

	for attempt := 0; attempt <= retryCfg.MaxRetries; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			if resp == nil || len(resp.Candidates) == 0 {
				return "", fmt.Errorf("empty response from gemini API")
			}
			text := resp.Text()
			if text == "" {
				return "", fmt.Errorf("empty text in gemini response")
			}
			return text, nil
		}
		lastErr = err

		if attempt == retryCfg.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(err) {
			backoff = retryCfg.CalculateBackoff(attempt, ExtractRetryDelay(err))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		g.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(err).Msg("retrying gemini API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("gemini API call failed after %d retries: %w", retryCfg.MaxRetries, lastErr)
}

func (g *googleClient) close() error {
	return nil
}

// convertToGenaiSchema converts a map[string]interface{} JSON-schema
// representation into a genai.Schema, so the same matchResultSchema defined
// for OpenAI-style tool calling can also drive Gemini's structured output.
func convertToGenaiSchema(schemaMap map[string]interface{}) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch typeStr {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if reqVals, ok := schemaMap["required"].([]string); ok {
		schema.Required = reqVals
	}

	if itemsMap, ok := schemaMap["items"].(map[string]interface{}); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			if propMap, ok := propVal.(map[string]interface{}); ok {
				propSchema, err := convertToGenaiSchema(propMap)
				if err != nil {
					return nil, fmt.Errorf("failed to convert property '%s': %w", propName, err)
				}
				schema.Properties[propName] = propSchema
			}
		}
	}

	return schema, nil
}
