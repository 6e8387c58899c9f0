// Package common provides shared utilities for Kakei
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Kakei
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Models      ModelsConfig  `toml:"models"`
	Sandbox     SandboxConfig `toml:"sandbox"`
	Render      RenderConfig  `toml:"render"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxBodyMB      int      `toml:"max_body_mb"`
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ModelsConfig selects the model backend and holds per-backend settings.
// Model identifiers themselves arrive on each request; this only configures
// the transport.
type ModelsConfig struct {
	Provider string       `toml:"provider"` // "ollama" or "gemini"
	Ollama   OllamaConfig `toml:"ollama"`
	Gemini   GeminiConfig `toml:"gemini"`
}

// OllamaConfig holds Ollama API configuration
type OllamaConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *OllamaConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// SandboxConfig bounds script execution.
type SandboxConfig struct {
	Timeout       string `toml:"timeout"`         // wall-clock budget per script
	MemoryLimitMB int    `toml:"memory_limit_mb"` // heap growth budget per script
}

// GetTimeout parses and returns the execution budget duration
func (c *SandboxConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// RenderConfig holds chart PNG rendering defaults.
type RenderConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8086,
			AllowedOrigins: []string{"*"},
			MaxBodyMB:      10,
		},
		Models: ModelsConfig{
			Provider: "ollama",
			Ollama: OllamaConfig{
				BaseURL:   "http://localhost:11434",
				RateLimit: 2,
				Timeout:   "120s",
			},
			Gemini: GeminiConfig{
				Timeout: "120s",
			},
		},
		Sandbox: SandboxConfig{
			Timeout:       "10s",
			MemoryLimitMB: 512,
		},
		Render: RenderConfig{
			Width:  1024,
			Height: 512,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KAKEI_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("KAKEI_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("KAKEI_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("KAKEI_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if provider := os.Getenv("KAKEI_MODEL_PROVIDER"); provider != "" {
		config.Models.Provider = strings.ToLower(provider)
	}

	// OLLAMA_HOST is the conventional variable the ollama CLI itself honors
	if url := os.Getenv("OLLAMA_HOST"); url != "" {
		config.Models.Ollama.BaseURL = url
	}
	if url := os.Getenv("KAKEI_OLLAMA_URL"); url != "" {
		config.Models.Ollama.BaseURL = url
	}

	if timeout := os.Getenv("KAKEI_SANDBOX_TIMEOUT"); timeout != "" {
		config.Sandbox.Timeout = timeout
	}
}

// ResolveGeminiAPIKey resolves the Gemini API key from the environment with
// the configured value as fallback. GEMINI_API_KEY and GOOGLE_API_KEY are the
// conventional variables the Google SDKs honor.
func ResolveGeminiAPIKey(configured string) (string, error) {
	for _, name := range []string{"GEMINI_API_KEY", "KAKEI_GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	if configured != "" {
		return configured, nil
	}
	return "", fmt.Errorf("gemini API key not configured")
}
