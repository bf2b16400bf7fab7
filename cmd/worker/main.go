// Package main is the entry point for the oficina outbox worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"oficina/internal/config"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/internal/infrastructure/worker"
	"oficina/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDev(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if cfg.App.Storage != config.StorageBackendPostgres {
		log.Fatalw("the worker requires postgres storage", "storage", cfg.App.Storage)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting oficina worker")

	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg.DB))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	relay := postgres.NewOutboxRelay(pool, cfg.Worker.BatchSize, worker.NewDispatcher(nil, log))
	w := worker.New(relay, worker.Config{PollInterval: cfg.Worker.PollInterval}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
