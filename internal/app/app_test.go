package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kakei.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewAppDefaultProvider(t *testing.T) {
	t.Setenv("KAKEI_MODEL_PROVIDER", "")

	path := writeConfig(t, `
[logging]
level = "error"
`)
	a, err := NewApp(path)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if a.Config.Models.Provider != "ollama" {
		t.Errorf("provider = %q, want ollama", a.Config.Models.Provider)
	}
	if a.ModelClient == nil {
		t.Fatal("expected a model client")
	}
	if a.Analyzer == nil {
		t.Fatal("expected an analyzer service")
	}
}

func TestNewAppSandboxConfig(t *testing.T) {
	t.Setenv("KAKEI_MODEL_PROVIDER", "")
	t.Setenv("KAKEI_SANDBOX_TIMEOUT", "")

	path := writeConfig(t, `
[sandbox]
timeout = "3s"
memory_limit_mb = 64

[logging]
level = "error"
`)
	a, err := NewApp(path)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if d := a.Config.Sandbox.GetTimeout(); d != 3*time.Second {
		t.Errorf("sandbox timeout = %v, want 3s", d)
	}
	if a.Config.Sandbox.MemoryLimitMB != 64 {
		t.Errorf("memory limit = %d, want 64", a.Config.Sandbox.MemoryLimitMB)
	}
}

func TestNewAppUnknownProvider(t *testing.T) {
	t.Setenv("KAKEI_MODEL_PROVIDER", "")

	path := writeConfig(t, `
[models]
provider = "watson"
`)
	_, err := NewApp(path)
	if err == nil || !strings.Contains(err.Error(), "unknown model provider") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestNewAppGeminiWithoutKey(t *testing.T) {
	t.Setenv("KAKEI_MODEL_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("KAKEI_GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	path := writeConfig(t, `
[models]
provider = "gemini"
`)
	_, err := NewApp(path)
	if err == nil {
		t.Fatal("expected an error when no gemini key is available")
	}
}
