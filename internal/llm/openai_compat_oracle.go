package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// openAICompatOracle implements Oracle against any OpenAI-compatible chat
// completions endpoint over plain net/http — this serves both the
// "openai" provider and "openrouter" (OpenRouter re-exposes the OpenAI
// wire format under its own base URL), since no OpenAI/OpenRouter Go SDK
// appears anywhere in the example pack (grounded on
// internal/httpclient/client.go's stdlib-http-client idiom).
type openAICompatOracle struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  arbor.ILogger
}

func newOpenAICompatOracle(baseURL, apiKey, model string, logger arbor.ILogger) (*openAICompatOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: an API key is required for this provider")
	}
	return &openAICompatOracle{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *openAICompatOracle) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	messages := []chatMessage{}
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	payload := chatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.1,
	}
	if req.Schema != nil {
		payload.ResponseFormat = map[string]any{"type": "json_object"}
	}

	retryConfig := NewDefaultRetryConfig()
	var text string
	var apiErr error

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		text, apiErr = o.doRequest(ctx, payload)
		if apiErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries || !IsRateLimitError(apiErr) {
			break
		}

		backoff := retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))

		o.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).Msg("llm: retrying chat completion call")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return nil, fmt.Errorf("llm: chat completion failed: %w", apiErr)
	}

	return json.RawMessage(stripJSONNoise(text)), nil
}

func (o *openAICompatOracle) doRequest(ctx context.Context, payload chatCompletionRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("llm: provider error (%d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("llm: provider returned status %d", resp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (o *openAICompatOracle) Close() error {
	return nil
}
