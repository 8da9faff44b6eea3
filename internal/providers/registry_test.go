package providers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModelsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write models file: %v", err)
	}
	return path
}

func TestRegistry_LoadsCapabilities(t *testing.T) {
	path := writeModelsFile(t, `
models:
  - name: gpt-4o
    provider: openai
    max_context_tokens: 128000
  - name: claude-3-5-sonnet
    provider: anthropic
    max_context_tokens: 200000
`)

	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	if got := reg.MaxContextTokens("gpt-4o"); got != 128000 {
		t.Errorf("gpt-4o context = %d, want 128000", got)
	}
	if got := reg.MaxContextTokens("claude-3-5-sonnet"); got != 200000 {
		t.Errorf("claude-3-5-sonnet context = %d, want 200000", got)
	}
	if !reg.Known("gpt-4o") {
		t.Error("gpt-4o should be known")
	}
	if reg.Known("mystery-model") {
		t.Error("mystery-model should not be known")
	}
}

func TestRegistry_UnknownModelFallsBackToDefault(t *testing.T) {
	path := writeModelsFile(t, "models: []\n")

	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if got := reg.MaxContextTokens("anything"); got != DefaultContextTokens {
		t.Errorf("unknown model context = %d, want %d", got, DefaultContextTokens)
	}
}

func TestRegistry_ZeroContextFallsBackToDefault(t *testing.T) {
	path := writeModelsFile(t, `
models:
  - name: broken
    provider: custom
`)

	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if got := reg.MaxContextTokens("broken"); got != DefaultContextTokens {
		t.Errorf("zero-context model = %d, want default %d", got, DefaultContextTokens)
	}
}

func TestRegistry_Reload(t *testing.T) {
	path := writeModelsFile(t, `
models:
  - name: gpt-4o
    provider: openai
    max_context_tokens: 128000
`)

	reg, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	updated := `
models:
  - name: gpt-4o
    provider: openai
    max_context_tokens: 256000
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite models file: %v", err)
	}
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := reg.MaxContextTokens("gpt-4o"); got != 256000 {
		t.Errorf("reloaded context = %d, want 256000", got)
	}
}

func TestRegistry_MissingFile(t *testing.T) {
	if _, err := NewRegistry(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing capability file")
	}
}
