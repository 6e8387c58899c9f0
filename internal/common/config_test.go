package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8086 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8086)
	}
}

func TestConfig_DefaultProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Models.Provider != "ollama" {
		t.Errorf("Models.Provider default = %q, want %q", cfg.Models.Provider, "ollama")
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("KAKEI_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_ProviderEnvOverride(t *testing.T) {
	t.Setenv("KAKEI_MODEL_PROVIDER", "Gemini")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Models.Provider != "gemini" {
		t.Errorf("Models.Provider = %q after env override, want %q", cfg.Models.Provider, "gemini")
	}
}

func TestConfig_OllamaHostEnvOverride(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Models.Ollama.BaseURL != "http://gpu-box:11434" {
		t.Errorf("Ollama.BaseURL = %q after env override, want %q", cfg.Models.Ollama.BaseURL, "http://gpu-box:11434")
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kakei.toml")
	content := `
environment = "production"

[server]
port = 9000

[sandbox]
timeout = "3s"
memory_limit_mb = 64
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "production")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Sandbox.MemoryLimitMB != 64 {
		t.Errorf("Sandbox.MemoryLimitMB = %d, want 64", cfg.Sandbox.MemoryLimitMB)
	}
	// Unset sections keep their defaults
	if cfg.Models.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want default", cfg.Models.Ollama.BaseURL)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/kakei.toml")
	if err != nil {
		t.Fatalf("LoadConfig() error for missing file: %v", err)
	}
	if cfg.Server.Port != 8086 {
		t.Errorf("Server.Port = %d, want default 8086", cfg.Server.Port)
	}
}

func TestSandboxConfig_GetTimeout_Default(t *testing.T) {
	cfg := &SandboxConfig{}
	if d := cfg.GetTimeout(); d != 10*time.Second {
		t.Errorf("GetTimeout() = %v, want 10s", d)
	}
}

func TestSandboxConfig_GetTimeout_Configured(t *testing.T) {
	cfg := &SandboxConfig{Timeout: "3s"}
	if d := cfg.GetTimeout(); d != 3*time.Second {
		t.Errorf("GetTimeout() = %v, want 3s", d)
	}
}

func TestSandboxConfig_GetTimeout_InvalidFallsBack(t *testing.T) {
	cfg := &SandboxConfig{Timeout: "not-a-duration"}
	if d := cfg.GetTimeout(); d != 10*time.Second {
		t.Errorf("GetTimeout() = %v, want 10s (fallback for invalid)", d)
	}
}

func TestOllamaConfig_GetTimeout_Default(t *testing.T) {
	cfg := &OllamaConfig{}
	if d := cfg.GetTimeout(); d != 120*time.Second {
		t.Errorf("GetTimeout() = %v, want 120s", d)
	}
}

func TestResolveGeminiAPIKey_EnvWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	key, err := ResolveGeminiAPIKey("from-config")
	if err != nil {
		t.Fatalf("ResolveGeminiAPIKey() error: %v", err)
	}
	if key != "from-env" {
		t.Errorf("key = %q, want %q", key, "from-env")
	}
}

func TestResolveGeminiAPIKey_FallbackToConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("KAKEI_GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	key, err := ResolveGeminiAPIKey("from-config")
	if err != nil {
		t.Fatalf("ResolveGeminiAPIKey() error: %v", err)
	}
	if key != "from-config" {
		t.Errorf("key = %q, want %q", key, "from-config")
	}
}

func TestResolveGeminiAPIKey_MissingEverywhere(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("KAKEI_GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if _, err := ResolveGeminiAPIKey(""); err == nil {
		t.Error("expected error when no key is available")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Environment: "Production"}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false for Production")
	}
	cfg.Environment = "development"
	if cfg.IsProduction() {
		t.Error("IsProduction() = true for development")
	}
}
