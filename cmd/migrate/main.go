// Package main applies the embedded database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"oficina/internal/config"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/internal/infrastructure/storage/postgres/migrations"
	"oficina/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|validate")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = log.With("cmd", *cmd)
	logger.SetDefault(log)

	// validate inspects the embedded files only
	if *cmd == "validate" {
		if err := migrations.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbCfg, err := config.LoadDB()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(*dbCfg))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("migrate ready")

	switch *cmd {
	case "up", "down", "status":
		err = migrations.Run(ctx, pool, *cmd)
	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		err = migrations.MigrateToVersion(ctx, pool, *version)
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
	log.Info("migrate done")
}
