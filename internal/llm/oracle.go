// Package llm provides a provider-agnostic "Oracle" abstraction over the
// three LLM backends spec.md §6 names (google, openai, openrouter),
// grounded on the teacher's ProviderFactory in
// internal/services/llm/provider.go but generalized: the teacher recognizes
// Claude/Gemini only, this recognizes google/openai/openrouter, and routes
// OpenRouter through a plain net/http OpenAI-compatible JSON call instead of
// guessing at an Anthropic-shaped one.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/common"
)

// Request is a provider-agnostic content-generation request: a system
// instruction, a user prompt, and an optional JSON schema the response
// must conform to (used for Gemini's native structured-output mode; other
// providers fall back to prompt-level JSON instructions plus
// fence/think-tag stripping).
type Request struct {
	System string
	User   string
	Schema map[string]any
}

// Oracle generates JSON-shaped content from a prompt. Generate returns the
// raw JSON response body — callers unmarshal it into their own structured
// type (discoverymode.ExtractionConfig, mappingmode.SchemaMapping, ...).
type Oracle interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
	Close() error
}

// New constructs the Oracle configured by cfg.LLM.Provider.
func New(cfg *common.Config, logger arbor.ILogger) (Oracle, error) {
	switch cfg.LLM.Provider {
	case common.LLMProviderOpenAI:
		return newOpenAICompatOracle("https://api.openai.com/v1", cfg.LLM.OpenAIAPIKey, defaultModel(cfg.LLM.OpenAIModel, "gpt-4o-mini"), logger)
	case common.LLMProviderOpenRouter:
		return newOpenAICompatOracle("https://openrouter.ai/api/v1", cfg.LLM.OpenRouterAPIKey, defaultModel(cfg.LLM.OpenRouterModel, "openai/gpt-4o-mini"), logger)
	case common.LLMProviderGoogle:
		return newGeminiOracle(cfg.LLM.GoogleAPIKey, defaultModel(cfg.LLM.GoogleModel, "gemini-2.0-flash"), logger)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.LLM.Provider)
	}
}

func defaultModel(configured, fallback string) string {
	if configured == "" {
		return fallback
	}
	return configured
}

// stripJSONNoise removes markdown code fences and <think>...</think>
// reasoning blocks some models wrap their JSON output in, for providers
// without a native structured-output mode.
func stripJSONNoise(text string) string {
	text = stripThinkBlocks(text)
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 1 {
			lines = lines[1:]
		}
		text = strings.Join(lines, "\n")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	return strings.TrimSpace(text)
}

func stripThinkBlocks(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start == -1 {
			return text
		}
		end := strings.Index(text[start:], "</think>")
		if end == -1 {
			return text[:start]
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
}
