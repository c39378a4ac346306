package resolve

import (
	"testing"

	"github.com/fissio/fissio"
)

func TestFactory_Claude(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	c := Factory(fissio.ModelConfig{
		ID:    "anthropic-sonnet",
		Name:  "Claude Sonnet 4.5 (Anthropic)",
		Model: "claude-sonnet-4-5-20250929",
	})
	if c == nil {
		t.Fatal("client is nil")
	}
	if c.Name() != "anthropic" {
		t.Errorf("Name() = %q, want %q", c.Name(), "anthropic")
	}
}

func TestFactory_LocalAPIBase(t *testing.T) {
	c := Factory(fissio.ModelConfig{
		ID:      "ollama-llama3-2-3b",
		Name:    "Llama3.2:3b (Local)",
		Model:   "llama3.2:3b",
		APIBase: "http://localhost:11434/v1",
	})
	if c == nil {
		t.Fatal("client is nil")
	}
	if c.Name() != "ollama" {
		t.Errorf("Name() = %q, want %q", c.Name(), "ollama")
	}
}

func TestFactory_HostedDefault(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	c := Factory(fissio.ModelConfig{
		ID:    "openai-gpt5",
		Name:  "GPT-5.2 (OpenAI)",
		Model: "gpt-5.2-2025-12-11",
	})
	if c == nil {
		t.Fatal("client is nil")
	}
	if c.Name() != "openai" {
		t.Errorf("Name() = %q, want %q", c.Name(), "openai")
	}
}

func TestFactory_ClaudeBeatsAPIBase(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	// A mislabeled entry with both a claude model and an API base resolves
	// by model prefix first.
	c := Factory(fissio.ModelConfig{
		ID:      "weird",
		Model:   "claude-haiku-4-5-20251001",
		APIBase: "http://localhost:11434/v1",
	})
	if c.Name() != "anthropic" {
		t.Errorf("Name() = %q, want %q", c.Name(), "anthropic")
	}
}
