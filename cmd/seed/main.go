// Package main seeds a tenant with a demo parts catalog and prints a
// development access token for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"oficina/internal/app"
	"oficina/internal/config"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/auth"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	tenantFlag := flag.String("tenant", "", "tenant id (UUID); a new one is generated when empty")
	userName := flag.String("user", "Seed Admin", "name carried in the issued token")
	roles := flag.String("roles", "admin", "comma-separated roles for the issued token")
	tokenOnly := flag.Bool("token-only", false, "only print an access token, do not touch the database")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	tenantID := id.New()
	if *tenantFlag != "" {
		if tenantID, err = id.Parse(*tenantFlag); err != nil {
			log.Fatalw("invalid -tenant", "error", err)
		}
	}
	user := appctx.UserContext{
		UserID:   id.New(),
		TenantID: tenantID,
		Name:     *userName,
		Roles:    strings.Split(*roles, ","),
	}
	ctx := tenant.WithID(appctx.WithUser(context.Background(), &user), tenantID)

	if !*tokenOnly {
		pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg.DB))
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		storage, err := app.PostgresStorage(pool, *cfg)
		if err != nil {
			log.Fatalw("failed to initialize storage", "error", err)
		}
		created, err := seedParts(ctx, app.NewServices(storage, nil), user.UserID, log)
		if err != nil {
			log.Fatalw("failed to seed parts", "error", err)
		}
		log.Infow("parts seeded", "tenant_id", tenantID, "created", created)
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtCfg.Issuer = cfg.JWT.Issuer
	token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(user)
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}
	fmt.Printf("tenant:  %s\nexpires: %s\ntoken:   %s\n", tenantID, expiresAt.Format("2006-01-02 15:04:05"), token)
}
