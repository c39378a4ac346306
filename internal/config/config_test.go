package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected :8000, got %s", cfg.Server.Addr)
	}
	if cfg.Database.URL != "data/pipelines.db" {
		t.Errorf("expected data/pipelines.db, got %s", cfg.Database.URL)
	}
	if cfg.Ollama.Host != "http://host.docker.internal:11434" {
		t.Errorf("expected docker host, got %s", cfg.Ollama.Host)
	}
	if cfg.Presets.Dir != "presets" {
		t.Errorf("expected presets, got %s", cfg.Presets.Dir)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[server]
addr = ":9090"

[ollama]
host = "http://localhost:11434"

[[models]]
id = "my-vllm"
name = "Qwen on vLLM"
model = "qwen2.5-coder"
api_base = "http://localhost:8001/v1"
`), 0644)

	cfg := Load(path)
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("expected localhost host, got %s", cfg.Ollama.Host)
	}
	// Defaults preserved
	if cfg.Database.URL != "data/pipelines.db" {
		t.Errorf("default should be preserved, got %s", cfg.Database.URL)
	}

	catalog := cfg.ModelCatalog()
	if len(catalog) != len(CloudModels())+1 {
		t.Fatalf("catalog size = %d, want %d", len(catalog), len(CloudModels())+1)
	}
	extra := catalog[len(catalog)-1]
	if extra.ID != "my-vllm" || extra.APIBase != "http://localhost:8001/v1" {
		t.Errorf("extra model = %+v, want the TOML entry", extra)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FISSIO_ADDR", ":7777")
	t.Setenv("DATABASE_URL", "postgres://localhost/fissio")
	t.Setenv("OLLAMA_HOST", "http://10.0.0.5:11434")

	cfg := Load("/nonexistent/path.toml")
	if cfg.Server.Addr != ":7777" {
		t.Errorf("expected :7777, got %s", cfg.Server.Addr)
	}
	if cfg.Database.URL != "postgres://localhost/fissio" {
		t.Errorf("expected postgres URL, got %s", cfg.Database.URL)
	}
	if cfg.Ollama.Host != "http://10.0.0.5:11434" {
		t.Errorf("expected env host, got %s", cfg.Ollama.Host)
	}
}

func TestCloudModelsHaveNoAPIBase(t *testing.T) {
	for _, m := range CloudModels() {
		if m.APIBase != "" {
			t.Errorf("cloud model %s has api_base %q, want empty", m.ID, m.APIBase)
		}
	}
}
