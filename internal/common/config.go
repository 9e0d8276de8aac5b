// -----------------------------------------------------------------------
// Configuration - TOML-backed application configuration
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Engine      EngineConfig    `toml:"engine"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Matcher     MatcherConfig   `toml:"matcher"`
	Providers   ProvidersConfig `toml:"providers"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Backend string       `toml:"backend"` // "sqlite" or "badger"
	SQLite  SQLiteConfig `toml:"sqlite"`
	Badger  BadgerConfig `toml:"badger"`
}

type SQLiteConfig struct {
	Path            string `toml:"path"`
	Environment     string `toml:"-"` // populated from Config.Environment at load time
	ResetOnStartup  bool   `toml:"reset_on_startup"`
	WALMode         bool   `toml:"wal_mode"`
	BusyTimeoutMS   int    `toml:"busy_timeout_ms"`
	CacheSizeMB     int    `toml:"cache_size_mb"`
}

type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "text" or "json"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // e.g. "15:04:05.000"
}

// EngineConfig controls the Task Engine's per-user run-queue and deadlines.
type EngineConfig struct {
	MaxConcurrentTasksPerUser int    `toml:"max_concurrent_tasks_per_user"` // cap on active tasks per user (suggested: 2)
	ScraperDeadline           string `toml:"scraper_deadline"`              // e.g. "15m"
	MatcherDeadline           string `toml:"matcher_deadline"`              // e.g. "20m"
	JobAgentDeadline          string `toml:"job_agent_deadline"`            // e.g. "30m"
}

func (e EngineConfig) DeadlineFor(taskType string) time.Duration {
	var raw string
	switch taskType {
	case "seek_scraper":
		raw = e.ScraperDeadline
	case "resume_job_matching":
		raw = e.MatcherDeadline
	case "job_agent":
		raw = e.JobAgentDeadline
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// ScraperConfig controls the browser pool and anti-detection pacing.
type ScraperConfig struct {
	UserAgent          string        `toml:"user_agent"`
	Headless           bool          `toml:"headless"`
	DisableGPU         bool          `toml:"disable_gpu"`
	NoSandbox          bool          `toml:"no_sandbox"`
	NavigationTimeout  time.Duration `toml:"navigation_timeout"`
	MinHumanDelay      time.Duration `toml:"min_human_delay"` // lower bound of navigation jitter (200ms)
	MaxHumanDelay      time.Duration `toml:"max_human_delay"` // upper bound of navigation jitter (2000ms)
	MaxNavRetries      int           `toml:"max_nav_retries"` // total navigation attempts per result page; only navigation errors are retried, HTTP status codes (429/403) are not inspected
	SearchBaseURL      string        `toml:"search_base_url"`
	MaxConsecutiveFail int           `toml:"max_consecutive_failures"` // session-fatal threshold
}

// MatcherConfig controls résumé-to-job scoring batching.
type MatcherConfig struct {
	BatchSize          int           `toml:"batch_size"`          // postings per batch (<=5)
	MaxConcurrentBatch int           `toml:"max_concurrent_batch"` // degree of parallelism across batches (<=2)
	InterBatchSleep    time.Duration `toml:"inter_batch_sleep"`   // ~1s
}

// ProviderConfig is one LLM vendor's connection details.
type ProviderConfig struct {
	APIKey             string  `toml:"api_key"`
	BaseURL            string  `toml:"base_url"`
	Model              string  `toml:"model"`
	SupportsToolCalls  bool    `toml:"supports_tool_calls"`
	Temperature        float32 `toml:"temperature"`
	AzureTenantID      string  `toml:"azure_tenant_id"`      // azure_openai only
	AzureClientID      string  `toml:"azure_client_id"`      // azure_openai only
	AzureClientSecret  string  `toml:"azure_client_secret"`  // azure_openai only
	AzureDeploymentID  string  `toml:"azure_deployment_id"`  // azure_openai only
}

// ProvidersConfig holds all five supported LLM providers.
type ProvidersConfig struct {
	DefaultProvider string          `toml:"default_provider"`
	OpenAI          ProviderConfig  `toml:"openai"`
	DeepSeek        ProviderConfig  `toml:"deepseek"`
	Google          ProviderConfig  `toml:"google"`
	AzureOpenAI     ProviderConfig  `toml:"azure_openai"`
	Ollama          ProviderConfig  `toml:"ollama"`
}

// NewDefaultConfig creates a configuration with sane defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			SQLite: SQLiteConfig{
				Path:          "./data/agent.db",
				WALMode:       true,
				BusyTimeoutMS: 5000,
				CacheSizeMB:   16,
			},
			Badger: BadgerConfig{Path: "./data/badger"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Engine: EngineConfig{
			MaxConcurrentTasksPerUser: 2,
			ScraperDeadline:           "15m",
			MatcherDeadline:           "20m",
			JobAgentDeadline:          "30m",
		},
		Scraper: ScraperConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:           true,
			DisableGPU:         true,
			NoSandbox:          true,
			NavigationTimeout:  30 * time.Second,
			MinHumanDelay:      200 * time.Millisecond,
			MaxHumanDelay:      2000 * time.Millisecond,
			MaxNavRetries:      3,
			MaxConsecutiveFail: 3,
		},
		Matcher: MatcherConfig{
			BatchSize:          5,
			MaxConcurrentBatch: 2,
			InterBatchSleep:    time.Second,
		},
		Providers: ProvidersConfig{
			DefaultProvider: "openai",
			OpenAI: ProviderConfig{
				BaseURL:           "https://api.openai.com/v1",
				Model:             "gpt-4o-mini",
				SupportsToolCalls: true,
				Temperature:       0.2,
			},
			DeepSeek: ProviderConfig{
				BaseURL:           "https://api.deepseek.com/v1",
				Model:             "deepseek-chat",
				SupportsToolCalls: false,
				Temperature:       0.2,
			},
			Google: ProviderConfig{
				Model:             "gemini-2.0-flash",
				SupportsToolCalls: false,
				Temperature:       0.2,
			},
			AzureOpenAI: ProviderConfig{
				SupportsToolCalls: true,
				Temperature:       0.2,
			},
			Ollama: ProviderConfig{
				BaseURL:           "http://localhost:11434/v1",
				Model:             "llama3.1",
				SupportsToolCalls: false,
				Temperature:       0.2,
			},
		},
	}
}

// LoadFromFiles loads configuration from multiple TOML files, later files
// overriding earlier ones, then applies environment variable overrides.
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
	config.Storage.SQLite.Environment = config.Environment

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AGENT_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("AGENT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("AGENT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("AGENT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if backend := os.Getenv("AGENT_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	// Provider API keys are commonly supplied via environment, never committed to TOML.
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		config.Providers.OpenAI.APIKey = k
	}
	if k := os.Getenv("DEEPSEEK_API_KEY"); k != "" {
		config.Providers.DeepSeek.APIKey = k
	}
	if k := os.Getenv("GOOGLE_API_KEY"); k != "" {
		config.Providers.Google.APIKey = k
	}
	if k := os.Getenv("AZURE_OPENAI_API_KEY"); k != "" {
		config.Providers.AzureOpenAI.APIKey = k
	}
}

// splitAndTrim splits s on sep and trims whitespace from each non-empty part.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
