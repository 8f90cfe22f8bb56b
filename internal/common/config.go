package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root application configuration for the mandi discovery/scrape agent.
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Browser     BrowserConfig `toml:"browser"`
	LLM         LLMConfig     `toml:"llm"`
	Agent       AgentConfig   `toml:"agent"`
}

// StorageConfig configures both the badgerhold-backed "mongo" mode and the
// CSV/txt file-based mode described in spec.md §6.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	CSV    CSVConfig    `toml:"csv"`
	DBName string       `toml:"db_name"` // logical database name, default "mandi_insights"
}

// BadgerConfig holds the on-disk path backing the badgerhold "mongo"-mode
// adapters. spec.md names MONGO_URI; no Mongo driver exists anywhere in the
// example corpus, so MONGO_URI is repurposed as this directory path (see
// DESIGN.md).
type BadgerConfig struct {
	Path string `toml:"path"`
}

// CSVConfig holds input/output file paths for "csv"/"txt" mode.
type CSVConfig struct {
	InputPath  string `toml:"input_path"`
	OutputPath string `toml:"output_path"`
	LogPath    string `toml:"log_path"`
}

// LoggingConfig mirrors the teacher's arbor-backed logging shape, trimmed to
// what this agent actually emits.
type LoggingConfig struct {
	Level      string   `toml:"level"`       // debug|info|warn|error
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05.000"
}

// BrowserConfig controls the headless-chromedp discovery driver (C5).
type BrowserConfig struct {
	Headless      bool `toml:"headless"`
	NavTimeoutSec int  `toml:"nav_timeout_sec"` // default 30
}

// LLMProvider is the oracle backend selector named in spec.md §6.
type LLMProvider string

const (
	LLMProviderGoogle     LLMProvider = "google"
	LLMProviderOpenAI     LLMProvider = "openai"
	LLMProviderOpenRouter LLMProvider = "openrouter"
)

// LLMConfig configures the C10 LM oracle.
type LLMConfig struct {
	Provider         LLMProvider `toml:"provider"`
	GoogleAPIKey     string      `toml:"google_api_key"`
	OpenAIAPIKey     string      `toml:"openai_api_key"`
	OpenRouterAPIKey string      `toml:"openrouter_api_key"`
	// OpenRouterModel is a comma-separated list of fallback model names,
	// tried in order until one succeeds.
	OpenRouterModel string `toml:"openrouter_model"`
	GoogleModel     string `toml:"google_model"`
	OpenAIModel     string `toml:"openai_model"`
}

// AgentConfig carries the CLI/env-driven run parameters of spec.md §6.
type AgentConfig struct {
	Mode                    string `toml:"mode"`  // scrape|discover|discover_and_scrape|single_url
	InputMode               string `toml:"input"` // mongo|csv
	LogMode                 string `toml:"log"`    // mongo|txt
	URL                     string `toml:"url"`
	MaxPagesPerSource       int    `toml:"max_pages_per_source"`      // default 50
	DiscoveryTimeoutSeconds int    `toml:"discovery_timeout_seconds"` // default 120
	RequestDelayMs          int    `toml:"request_delay_ms"`          // default 500
	Schedule                string `toml:"schedule"`                  // optional cron expression (supplemented feature)
}

// NewDefaultConfig returns the configuration defaults documented in spec.md §6.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data"},
			CSV: CSVConfig{
				InputPath:  "./sources.csv",
				OutputPath: "./prices.csv",
				LogPath:    "./agent.log",
			},
			DBName: "mandi_insights",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Browser: BrowserConfig{
			Headless:      true,
			NavTimeoutSec: 30,
		},
		LLM: LLMConfig{
			Provider:    LLMProviderGoogle,
			GoogleModel: "gemini-2.0-flash",
			OpenAIModel: "gpt-4o-mini",
		},
		Agent: AgentConfig{
			Mode:                    "scrape",
			InputMode:               "csv",
			LogMode:                 "txt",
			MaxPagesPerSource:       50,
			DiscoveryTimeoutSeconds: 120,
			RequestDelayMs:          500,
		},
	}
}

// LoadFromFiles loads configuration with priority:
// default -> file1 -> file2 -> ... -> env -> CLI (CLI applied separately via
// ApplyFlagOverrides after this call), matching the teacher's documented
// load order in cmd/quaero/main.go.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies the environment variables named in spec.md §6.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Storage.DBName = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		config.LLM.Provider = LLMProvider(v)
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		config.LLM.GoogleAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		config.LLM.OpenRouterAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		config.LLM.OpenRouterModel = v
	}
	if v := os.Getenv("AGENT_MODE"); v != "" {
		config.Agent.Mode = v
	}
	if v := os.Getenv("INPUT_MODE"); v != "" {
		config.Agent.InputMode = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		config.Agent.LogMode = v
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = b
		}
	}
	if v := os.Getenv("MAX_PAGES_PER_SOURCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Agent.MaxPagesPerSource = n
		}
	}
	if v := os.Getenv("DISCOVERY_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Agent.DiscoveryTimeoutSeconds = n
		}
	}
	if v := os.Getenv("REQUEST_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Agent.RequestDelayMs = n
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides, the final and
// highest-priority layer in the load order.
func ApplyFlagOverrides(config *Config, mode, url, input, log string, headless *bool) {
	if mode != "" {
		config.Agent.Mode = mode
	}
	if url != "" {
		config.Agent.URL = url
	}
	if input != "" {
		config.Agent.InputMode = input
	}
	if log != "" {
		config.Agent.LogMode = log
	}
	if headless != nil {
		config.Browser.Headless = *headless
	}
}

// IsProduction reports whether the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// APIKeyFor resolves the configured API key for the active LLM provider.
func (c *Config) APIKeyFor(provider LLMProvider) (string, error) {
	switch provider {
	case LLMProviderGoogle:
		if c.LLM.GoogleAPIKey == "" {
			return "", fmt.Errorf("GOOGLE_API_KEY not configured")
		}
		return c.LLM.GoogleAPIKey, nil
	case LLMProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return "", fmt.Errorf("OPENAI_API_KEY not configured")
		}
		return c.LLM.OpenAIAPIKey, nil
	case LLMProviderOpenRouter:
		if c.LLM.OpenRouterAPIKey == "" {
			return "", fmt.Errorf("OPENROUTER_API_KEY not configured")
		}
		return c.LLM.OpenRouterAPIKey, nil
	default:
		return "", fmt.Errorf("unknown LLM provider %q", provider)
	}
}
