package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/fissio/fissio"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Presets   PresetsConfig   `toml:"presets"`
	Guard     GuardConfig     `toml:"guard"`
	Retry     RetryConfig     `toml:"retry"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Observer  ObserverConfig  `toml:"observer"`
	Models    []ModelEntry    `toml:"models"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DatabaseConfig selects the pipeline store. URL is interpreted by scheme:
// postgres:// and postgresql:// use PostgreSQL, libsql:// uses Turso
// (with TursoToken for auth), anything else is treated as a SQLite file path.
type DatabaseConfig struct {
	URL        string `toml:"url"`
	TursoToken string `toml:"turso_token"`
}

type OllamaConfig struct {
	Host string `toml:"host"`
}

type PresetsConfig struct {
	Dir string `toml:"dir"`
}

// GuardConfig enables input screening on the chat endpoint. All checks are
// off by default.
type GuardConfig struct {
	Injection      bool     `toml:"injection"`
	ScanHistory    bool     `toml:"scan_history"`
	MaxInputLength int      `toml:"max_input_length"`
	BlockKeywords  []string `toml:"block_keywords"`
}

// RetryConfig wraps cloud clients with transient-error retry when Enabled.
// MaxAttempts and BaseDelayMs fall back to the wrapper defaults when zero.
type RetryConfig struct {
	Enabled     bool `toml:"enabled"`
	MaxAttempts int  `toml:"max_attempts"`
	BaseDelayMs int  `toml:"base_delay_ms"`
}

// RateLimitConfig throttles cloud clients per model ID. Zero values
// leave the corresponding budget unlimited.
type RateLimitConfig struct {
	RPM int `toml:"rpm"`
	TPM int `toml:"tpm"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

// ObserverPricing overrides per-million-token pricing for one model ID.
type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// ModelEntry is a model catalog entry declared in TOML. Entries are
// appended to the built-in cloud catalog.
type ModelEntry struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Model   string `toml:"model"`
	APIBase string `toml:"api_base"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8000"},
		Database: DatabaseConfig{URL: "data/pipelines.db"},
		Ollama:   OllamaConfig{Host: "http://host.docker.internal:11434"},
		Presets:  PresetsConfig{Dir: "presets"},
	}
}

// CloudModels is the built-in catalog of hosted models. Local Ollama models
// are discovered at startup and appended to this list.
func CloudModels() []fissio.ModelConfig {
	return []fissio.ModelConfig{
		{ID: "openai-gpt5", Name: "GPT-5.2 (OpenAI)", Model: "gpt-5.2-2025-12-11"},
		{ID: "openai-codex", Name: "GPT-5.2 Codex (OpenAI)", Model: "gpt-5.2-codex"},
		{ID: "anthropic-opus", Name: "Claude Opus 4.5 (Anthropic)", Model: "claude-opus-4-5-20251101"},
		{ID: "anthropic-sonnet", Name: "Claude Sonnet 4.5 (Anthropic)", Model: "claude-sonnet-4-5-20250929"},
		{ID: "anthropic-haiku", Name: "Claude Haiku 4.5 (Anthropic)", Model: "claude-haiku-4-5-20251001"},
	}
}

// ModelCatalog returns the built-in cloud models plus any models declared
// in the config file.
func (c Config) ModelCatalog() []fissio.ModelConfig {
	models := CloudModels()
	for _, m := range c.Models {
		models = append(models, fissio.ModelConfig{ID: m.ID, Name: m.Name, Model: m.Model, APIBase: m.APIBase})
	}
	return models
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "fissio.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("FISSIO_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FISSIO_TURSO_TOKEN"); v != "" {
		cfg.Database.TursoToken = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
	if v := os.Getenv("FISSIO_PRESETS_DIR"); v != "" {
		cfg.Presets.Dir = v
	}
	if os.Getenv("FISSIO_GUARD_INJECTION") == "true" || os.Getenv("FISSIO_GUARD_INJECTION") == "1" {
		cfg.Guard.Injection = true
	}
	if os.Getenv("FISSIO_RETRY_ENABLED") == "true" || os.Getenv("FISSIO_RETRY_ENABLED") == "1" {
		cfg.Retry.Enabled = true
	}
	if os.Getenv("FISSIO_OBSERVER_ENABLED") == "true" || os.Getenv("FISSIO_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
