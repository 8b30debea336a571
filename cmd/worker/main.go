// File: cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"todo-maistro/internal/agent"
	"todo-maistro/internal/config"
	"todo-maistro/internal/domain/ports/adapter"
	aiAdapters "todo-maistro/internal/infra/adapters/ai"
	pg "todo-maistro/internal/infra/db/postgres"
	"todo-maistro/internal/infra/logging"
	"todo-maistro/internal/infra/metrics"
	red "todo-maistro/internal/infra/redis"
	"todo-maistro/internal/infra/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	registry := red.NewJobRegistry(redisClient, cfg.Redis.JobTTL)
	events := red.NewEventLog(redisClient, cfg.Redis.StreamTTL)
	queue := red.NewJobQueue(redisClient, cfg.Jobs.Queue)
	locker := red.NewLocker(redisClient)

	memoryStore := pg.NewMemoryStore(pool)
	threadRepo := pg.NewThreadRepo(pool)

	// ---- Model adapter ----
	var model adapter.ModelAdapter
	switch cfg.AI.Provider {
	case "openai":
		model, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("model adapter: openai")
	case "gemini":
		model, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("model adapter: gemini")
	case "noop":
		model = aiAdapters.NewNoopAdapter()
		logger.Warn().Msg("model adapter: noop (canned replies)")
	default:
		logger.Fatal().Str("provider", cfg.AI.Provider).Msg("unknown ai provider")
	}

	instrumented := aiAdapters.NewMeteredAdapter(model)
	ag := agent.New(instrumented, memoryStore, threadRepo, cfg.Jobs.MaxTurnLoops, logger)

	pool2 := worker.NewPool(cfg.Jobs.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	processor := worker.NewTurnProcessor(
		queue, registry, events, locker, ag, pool2,
		cfg.Jobs.Budget, cfg.Redis.BlockTimeout,
		logger,
	)

	go func() {
		if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("processor stopped")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
