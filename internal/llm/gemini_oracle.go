package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// geminiOracle implements Oracle using Google's genai SDK, ported from the
// teacher's generateWithGemini/convertToGenaiSchema (provider.go).
type geminiOracle struct {
	client *genai.Client
	model  string
	logger arbor.ILogger
}

func newGeminiOracle(apiKey, model string, logger arbor.ILogger) (*geminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: GOOGLE_API_KEY is required for provider=google")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to initialize genai client: %w", err)
	}
	return &geminiOracle{client: client, model: model, logger: logger}, nil
}

func (o *geminiOracle) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	content := genai.NewContentFromText(req.User, genai.RoleUser)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Schema) > 0 {
		schema, err := convertToGenaiSchema(req.Schema)
		if err != nil {
			o.logger.Warn().Err(err).Msg("llm: failed to convert schema, continuing without structured output")
		} else if schema != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = schema
		}
	}

	retryConfig := NewDefaultRetryConfig()
	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = o.client.Models.GenerateContent(ctx, o.model, []*genai.Content{content}, config)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries || !IsRateLimitError(apiErr) {
			break
		}

		backoff := retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))

		o.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).Msg("llm: retrying Gemini call")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return nil, fmt.Errorf("llm: Gemini call failed: %w", apiErr)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("llm: empty response from Gemini")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("llm: empty text in Gemini response")
	}
	return json.RawMessage(stripJSONNoise(text)), nil
}

func (o *geminiOracle) Close() error {
	o.client = nil
	return nil
}

// convertToGenaiSchema converts a plain JSON-Schema map (as produced by
// discoverymode/mappingmode's fixed schemas) to a *genai.Schema, ported
// directly from the teacher's provider.go.
func convertToGenaiSchema(schemaMap map[string]any) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch strings.ToLower(typeStr) {
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

	if enumVals, ok := schemaMap["enum"].([]any); ok {
		for _, v := range enumVals {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	} else if enumVals, ok := schemaMap["enum"].([]string); ok {
		schema.Enum = enumVals
	}

	if reqVals, ok := schemaMap["required"].([]any); ok {
		for _, v := range reqVals {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	} else if reqVals, ok := schemaMap["required"].([]string); ok {
		schema.Required = reqVals
	}

	if itemsMap, ok := schemaMap["items"].(map[string]any); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("llm: failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			if propMap, ok := propVal.(map[string]any); ok {
				propSchema, err := convertToGenaiSchema(propMap)
				if err != nil {
					return nil, fmt.Errorf("llm: failed to convert property %q: %w", propName, err)
				}
				schema.Properties[propName] = propSchema
			}
		}
	}

	return schema, nil
}
