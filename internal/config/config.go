// Package config loads and validates shipsense configuration.
// Configuration is read from a YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all shipsense configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Metric source configuration
	Source SourceConfig `yaml:"source"`

	// LLM interpreter configuration (optional; rules are used when disabled)
	LLM LLMConfig `yaml:"llm"`

	// Orchestrator settings
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Turn archive
	Archive ArchiveConfig `yaml:"archive"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig configures the metric data source.
type SourceConfig struct {
	Mode         string `yaml:"mode"` // mock, rest
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Timeout      string `yaml:"timeout"`
	CatalogPath  string `yaml:"catalog_path"` // vessel catalog YAML for the mock source
	WatchCatalog bool   `yaml:"watch_catalog"`
}

// LLMConfig configures the LLM-backed utterance interpreter.
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// OrchestratorConfig configures turn processing.
type OrchestratorConfig struct {
	// ToolTimeout bounds each tool invocation.
	ToolTimeout string `yaml:"tool_timeout"`

	// MaxRetries is the retry bound for transient source failures.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the initial backoff; it doubles per attempt.
	RetryBackoff string `yaml:"retry_backoff"`

	// DefaultLookback fills an omitted time range (e.g. "168h" = last week).
	DefaultLookback string `yaml:"default_lookback"`
}

// ArchiveConfig configures the SQLite turn archive.
type ArchiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "shipsense",
		Version: "0.3.0",

		Source: SourceConfig{
			Mode:        "mock",
			BaseURL:     "https://api.toqua.ai/kernels/v1",
			Timeout:     "30s",
			CatalogPath: "data/fleet.yaml",
		},

		LLM: LLMConfig{
			Enabled: false,
			Model:   "gemini-3-flash-preview",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout: "60s",
		},

		Orchestrator: OrchestratorConfig{
			ToolTimeout:     "20s",
			MaxRetries:      2,
			RetryBackoff:    "250ms",
			DefaultLookback: "168h",
		},

		Archive: ArchiveConfig{
			Enabled:      false,
			DatabasePath: "data/shipsense.db",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("TOQUA_API_KEY"); key != "" {
		c.Source.APIKey = key
	}
	if url := os.Getenv("TOQUA_API_URL"); url != "" {
		c.Source.BaseURL = url
	}
	if mode := os.Getenv("SHIPSENSE_SOURCE"); mode != "" {
		c.Source.Mode = mode
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Enabled = true
	}
	if path := os.Getenv("SHIPSENSE_DB"); path != "" {
		c.Archive.DatabasePath = path
		c.Archive.Enabled = true
	}
	if path := os.Getenv("SHIPSENSE_CATALOG"); path != "" {
		c.Source.CatalogPath = path
	}
}

// GetSourceTimeout returns the data source timeout as a duration.
func (c *Config) GetSourceTimeout() time.Duration {
	d, err := time.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetToolTimeout returns the per-tool-invocation timeout as a duration.
func (c *Config) GetToolTimeout() time.Duration {
	d, err := time.ParseDuration(c.Orchestrator.ToolTimeout)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// GetRetryBackoff returns the initial retry backoff as a duration.
func (c *Config) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.Orchestrator.RetryBackoff)
	if err != nil {
		return 250 * time.Millisecond
	}
	return d
}

// GetDefaultLookback returns the default time-range lookback as a duration.
func (c *Config) GetDefaultLookback() time.Duration {
	d, err := time.ParseDuration(c.Orchestrator.DefaultLookback)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// ValidSourceModes lists supported metric source modes.
var ValidSourceModes = []string{"mock", "rest"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validMode := false
	for _, m := range ValidSourceModes {
		if c.Source.Mode == m {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid source mode: %s (valid: %v)", c.Source.Mode, ValidSourceModes)
	}

	if c.Source.Mode == "rest" {
		if c.Source.BaseURL == "" {
			return fmt.Errorf("source base_url required in rest mode")
		}
		if c.Source.APIKey == "" {
			return fmt.Errorf("source API key not configured (set TOQUA_API_KEY)")
		}
	}

	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM interpreter enabled but no API key configured (set GEMINI_API_KEY)")
	}

	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.Orchestrator.MaxRetries)
	}

	return nil
}
