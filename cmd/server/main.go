// Package main is the entry point for the oficina API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oficina/internal/app"
	"oficina/internal/config"
	"oficina/internal/domain/auth"
	v1 "oficina/internal/infrastructure/http/v1"
	"oficina/internal/infrastructure/http/v1/handlers"
	"oficina/internal/infrastructure/storage/memory"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/internal/infrastructure/storage/postgres/migrations"
	"oficina/pkg/logger"
	"oficina/pkg/metrics"
)

var version = "dev"

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

	ctx := context.Background()
	log.Infow("starting oficina server", "version", version, "storage", cfg.App.Storage)

	var (
		reg     *prometheus.Registry
		httpMet *metrics.HTTP
		metHTTP http.Handler
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		httpMet = metrics.NewHTTP(reg)
		metHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	var (
		storage app.Storage
		health  handlers.Pinger
	)
	switch cfg.App.Storage {
	case config.StorageBackendMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		storage = app.MemoryStorage(memory.NewStore(memory.WithLockTimeout(cfg.DB.LockTimeout)))
	default:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg.DB))
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Info("database connection established")

		if cfg.DB.MigrationsOnStart {
			if err := migrations.Run(ctx, pool, "up"); err != nil {
				log.Fatalw("failed to apply migrations", "error", err)
			}
			log.Info("migrations applied")
		}

		storage, err = app.PostgresStorage(pool, *cfg)
		if err != nil {
			log.Fatalw("failed to initialize storage", "error", err)
		}
		health = pool
		metrics.RegisterDBPool(promRegisterer(reg), pool.Stats)
		defer pool.LogStats(ctx)
	}

	services := app.NewServices(storage, promRegisterer(reg))

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtCfg.Issuer = cfg.JWT.Issuer
	jwtService := auth.NewJWTService(jwtCfg)

	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		Catalog:        services.Catalog,
		Stock:          services.Stock,
		Orders:         services.Orders,
		Health:         health,
		Storage:        cfg.App.Storage,
		Version:        version,
		HTTPMetrics:    httpMet,
		MetricsHandler: metHTTP,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// promRegisterer keeps a nil registry a nil interface.
func promRegisterer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}
