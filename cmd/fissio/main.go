package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/internal/config"
	"github.com/fissio/fissio/internal/server"
	"github.com/fissio/fissio/observer"
	"github.com/fissio/fissio/provider/ollama"
	"github.com/fissio/fissio/provider/resolve"
	"github.com/fissio/fissio/store/libsql"
	"github.com/fissio/fissio/store/postgres"
	"github.com/fissio/fissio/store/sqlite"
	"github.com/fissio/fissio/tools"
)

func main() {
	_ = godotenv.Load()

	// 1. Logger
	level := slog.LevelInfo
	if os.Getenv("FISSIO_DEBUG") == "1" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 2. Load config
	cfg := config.Load(os.Getenv("FISSIO_CONFIG"))
	ctx := context.Background()

	// 3. Open the pipeline store and seed the examples
	store := openStore(ctx, cfg)
	if err := store.Init(ctx); err != nil {
		log.Fatalf("init store: %v", err)
	}
	defer store.Close()

	n, err := fissio.SeedExamples(ctx, store)
	if err != nil {
		log.Fatalf("seed examples: %v", err)
	}
	if n > 0 {
		logger.Info("seeded example pipelines", "count", n)
	}

	// 4. Model catalog: cloud models plus whatever the Ollama host serves
	models := cfg.ModelCatalog()
	local, err := ollama.Discover(ctx, cfg.Ollama.Host)
	if err != nil {
		logger.Warn("ollama discovery failed, is Ollama running?", "host", cfg.Ollama.Host, "error", err)
	} else {
		logger.Info("found local Ollama models", "count", len(local))
		for _, m := range local {
			logger.Info("discovered model", "name", m.Name, "id", m.ID)
		}
		models = append(models, local...)
	}

	// 5. Presets
	presets, err := fissio.LoadPresets(cfg.Presets.Dir)
	if err != nil {
		logger.Warn("preset load failed, starting with none", "dir", cfg.Presets.Dir, "error", err)
		presets = fissio.NewPresetRegistry()
	}

	// 6. Tools
	registry := tools.DefaultRegistry()
	logger.Info("registered tools", "count", len(registry.Names()), "tools", registry.Names())

	// 7. Input guards
	opts := []server.Option{server.WithLogger(logger)}
	if guards := buildGuards(cfg.Guard, logger); len(guards) > 0 {
		opts = append(opts, server.WithGuards(guards...))
	}

	// 8. Client wrappers: retry and rate limiting around the provider factory
	clients := fissio.ClientFactory(resolve.Factory)
	if cfg.Retry.Enabled {
		retryOpts := []fissio.RetryOption{fissio.RetryLogger(logger)}
		if cfg.Retry.MaxAttempts > 0 {
			retryOpts = append(retryOpts, fissio.RetryMaxAttempts(cfg.Retry.MaxAttempts))
		}
		if cfg.Retry.BaseDelayMs > 0 {
			retryOpts = append(retryOpts, fissio.RetryBaseDelay(time.Duration(cfg.Retry.BaseDelayMs)*time.Millisecond))
		}
		inner := clients
		clients = func(m fissio.ModelConfig) fissio.Client {
			return fissio.WithRetry(inner(m), retryOpts...)
		}
		logger.Info("retry enabled", "max_attempts", cfg.Retry.MaxAttempts, "base_delay_ms", cfg.Retry.BaseDelayMs)
	}
	if cfg.RateLimit.RPM > 0 || cfg.RateLimit.TPM > 0 {
		clients = sharedRateLimit(clients, cfg.RateLimit)
		logger.Info("rate limiting enabled", "rpm", cfg.RateLimit.RPM, "tpm", cfg.RateLimit.TPM)
	}

	// 9. Observability (exports to the OTLP endpoint from the environment)
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for id, p := range cfg.Observer.Pricing {
			pricing[id] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		inst, shutdown, err := observer.Init(ctx, pricing)
		if err != nil {
			log.Fatalf("init observer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("observer shutdown", "error", err)
			}
		}()

		registry = observer.WrapRegistry(registry, inst)
		inner := clients
		clients = func(m fissio.ModelConfig) fissio.Client {
			return observer.WrapClient(inner(m), m.Model, inst)
		}
		opts = append(opts,
			server.WithObserver(inst),
			server.WithTracer(observer.NewTracer()),
		)
		logger.Info("observer enabled")
	}
	opts = append(opts, server.WithClients(clients))

	// 10. Serve
	srv := server.New(models, presets, store, registry, opts...)
	logger.Info("loaded pipeline templates", "count", len(srv.Templates()))
	if err := srv.LoadConfigs(ctx); err != nil {
		log.Fatalf("load saved configs: %v", err)
	}
	log.Fatal(srv.Start(cfg.Server.Addr))
}

// sharedRateLimit wraps the factory so every request for the same model ID
// shares one sliding-window budget.
func sharedRateLimit(inner fissio.ClientFactory, rl config.RateLimitConfig) fissio.ClientFactory {
	var mu sync.Mutex
	limiters := make(map[string]fissio.Client)
	return func(m fissio.ModelConfig) fissio.Client {
		mu.Lock()
		defer mu.Unlock()
		c, ok := limiters[m.ID]
		if !ok {
			c = fissio.WithRateLimit(inner(m), fissio.RPM(rl.RPM), fissio.TPM(rl.TPM))
			limiters[m.ID] = c
		}
		return c
	}
}

// openStore picks the backend from the database URL: postgres:// or
// postgresql:// for Postgres, libsql:// for Turso, anything else is a local
// SQLite path.
func openStore(ctx context.Context, cfg config.Config) fissio.PipelineStore {
	url := cfg.Database.URL
	switch {
	case strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://"):
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		return postgres.New(pool)
	case strings.HasPrefix(url, "libsql://"):
		return libsql.NewRemote(url, cfg.Database.TursoToken)
	default:
		return sqlite.New(url)
	}
}

// buildGuards assembles input guards from the guard config section.
func buildGuards(gc config.GuardConfig, logger *slog.Logger) []fissio.Guard {
	var guards []fissio.Guard
	if gc.Injection {
		opts := []fissio.InjectionOption{fissio.InjectionLogger(logger)}
		if gc.ScanHistory {
			opts = append(opts, fissio.ScanHistory())
		}
		guards = append(guards, fissio.NewInjectionGuard(opts...))
	}
	if gc.MaxInputLength > 0 {
		guards = append(guards, fissio.NewContentGuard(
			fissio.MaxInputLength(gc.MaxInputLength),
			fissio.ContentLogger(logger),
		))
	}
	if len(gc.BlockKeywords) > 0 {
		guards = append(guards, fissio.NewKeywordGuard(gc.BlockKeywords...).WithKeywordLogger(logger))
	}
	return guards
}
