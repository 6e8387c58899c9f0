// Package app wires configuration, the model client and the analysis
// pipeline into a single application core behind cmd/kakei-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmccarthy/kakei/internal/clients/gemini"
	"github.com/bobmccarthy/kakei/internal/clients/ollama"
	"github.com/bobmccarthy/kakei/internal/common"
	"github.com/bobmccarthy/kakei/internal/interfaces"
	"github.com/bobmccarthy/kakei/internal/services/analyzer"
)

// App holds the initialized model client and analyzer service.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	ModelClient interfaces.ModelClient
	Analyzer    interfaces.AnalyzerService
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, logging, the model client and the
// analyzer service. configPath may be empty, in which case the default
// resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Load configuration - check provided path, KAKEI_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("KAKEI_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "kakei.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/kakei.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	modelClient, err := newModelClient(config, logger)
	if err != nil {
		return nil, err
	}

	sandbox := analyzer.NewSandbox(config.Sandbox.GetTimeout(), config.Sandbox.MemoryLimitMB, logger)
	analyzerService := analyzer.NewService(modelClient, sandbox, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		ModelClient: modelClient,
		Analyzer:    analyzerService,
		StartupTime: startupStart,
	}

	logger.Info().
		Str("provider", config.Models.Provider).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newModelClient builds the chat client selected by models.provider.
func newModelClient(config *common.Config, logger *common.Logger) (interfaces.ModelClient, error) {
	switch config.Models.Provider {
	case "", "ollama":
		return ollama.NewClient(config.Models.Ollama.BaseURL,
			ollama.WithLogger(logger),
			ollama.WithRateLimit(config.Models.Ollama.RateLimit),
			ollama.WithTimeout(config.Models.Ollama.GetTimeout()),
		)
	case "gemini":
		apiKey, err := common.ResolveGeminiAPIKey(config.Models.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		return gemini.NewClient(context.Background(), apiKey,
			gemini.WithLogger(logger),
			gemini.WithTimeout(config.Models.Gemini.GetTimeout()),
		)
	default:
		return nil, fmt.Errorf("unknown model provider %q", config.Models.Provider)
	}
}

// Close releases resources held by the App.
func (a *App) Close() {
	if c, ok := a.ModelClient.(interface{ Close() error }); ok {
		c.Close()
	}
}
