// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-maistro/internal/config"
	pg "todo-maistro/internal/infra/db/postgres"
	"todo-maistro/internal/infra/logging"
	"todo-maistro/internal/infra/metrics"
	red "todo-maistro/internal/infra/redis"
	"todo-maistro/internal/infra/web"
	"todo-maistro/internal/usecase"
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

	memoryStore := pg.NewMemoryStore(pool)

	chatUC := usecase.NewChatUseCase(registry, queue)
	memoryUC := usecase.NewMemoryUseCase(memoryStore)

	srv := web.NewServer(
		chatUC, memoryUC, registry, events, queue,
		func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return redisClient.Ping(pingCtx)
		},
		cfg.Redis.BlockTimeout, cfg.Redis.KeepaliveInterval,
		cfg.Server.CORSOrigins,
		logger,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := server.Shutdown(shutCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
