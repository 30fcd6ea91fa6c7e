package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sherlock-relay/server/internal/agent/graph"
	"github.com/sherlock-relay/server/internal/agent/model"
	"github.com/sherlock-relay/server/internal/agent/repo"
	"github.com/sherlock-relay/server/internal/core"
	"github.com/sherlock-relay/server/internal/relay"
	"github.com/sherlock-relay/server/internal/webhook"
	logx "github.com/sherlock-relay/server/pkg/logger"
	pkgpostgres "github.com/sherlock-relay/server/pkg/postgres"
	pkgredis "github.com/sherlock-relay/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the relay,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent   model.AgentModelConfig
	Persona model.PersonaConfig
	Memory  model.MemoryConfig

	// Relay
	Relay    relay.Config
	Telegram relay.TelegramConfig
	HTTP     webhook.Config
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("Relay stopped with error")
	}
	logx.Info().Msg("Relay stopped")
}

func run(ctx context.Context, cfg AppConfig) error {
	store, closeStore, err := newThreadStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agent, err := graph.BuildAgent(ctx, graph.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		AgentModel:  cfg.Agent,
		Persona:     cfg.Persona,
		Memory:      cfg.Memory,
		ThreadStore: store,
	})
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	if cfg.Telegram.BotToken == "" {
		logx.Warn().Msg("TELEGRAM_BOT_TOKEN is not set; every delivery will fail")
	}

	pipeline := relay.NewPipeline(
		relay.NewResponder(agent, cfg.Relay),
		relay.NewDeliverer(cfg.Telegram, nil),
	)

	logx.Info().
		Str("env", cfg.Environment.String()).
		Str("model", cfg.Agent.Model).
		Str("persona", cfg.Persona.Name).
		Str("memory", cfg.Memory.Backend).
		Msg("Starting relay")

	return webhook.NewServer(cfg.HTTP, pipeline).Start(ctx)
}

// newThreadStore connects the configured memory backend.
func newThreadStore(ctx context.Context, cfg AppConfig) (model.ThreadStore, func(), error) {
	switch cfg.Memory.Backend {
	case model.MemoryBackendPostgres:
		pool, err := cfg.Postgres.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := repo.NewPostgresThreadRepository(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logx.Info().Msg("Connected to Postgres successfully")
		return pg, pool.Close, nil

	case model.MemoryBackendRedis, "":
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisThreadRepository(rdb, cfg.Memory.TTL), func() { _ = rdb.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown MEMORY_BACKEND %q", cfg.Memory.Backend)
	}
}
