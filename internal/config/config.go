// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read here.
const EnvPrefix = "OFICINA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	Numerator NumeratorConfig
	Worker    WorkerConfig
	Metrics   MetricsConfig
}

// Load reads the configuration. Call godotenv.Load first in binaries
// that should honor a local .env file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDB reads only the database settings, for tools that never serve
// requests.
func LoadDB() (*DBConfig, error) {
	var cfg DBConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("OFICINA_DB_DSN is required")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.App.Storage {
	case StorageBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("OFICINA_DB_DSN is required for postgres storage")
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.App.Storage)
	}
	if c.DB.LockTimeout <= 0 {
		return fmt.Errorf("OFICINA_DB_LOCK_TIMEOUT must be positive")
	}
	return nil
}

type AppConfig struct {
	Env      string `envconfig:"OFICINA_APP_ENV" default:"dev"`
	Port     string `envconfig:"OFICINA_APP_PORT" default:"8080"`
	LogLevel string `envconfig:"OFICINA_LOG_LEVEL" default:"info"`
	// Storage selects the backing store: postgres or memory (demo only).
	Storage string `envconfig:"OFICINA_STORAGE" default:"postgres"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN               string        `envconfig:"OFICINA_DB_DSN"`
	MaxConns          int32         `envconfig:"OFICINA_DB_MAX_CONNS" default:"25"`
	MinConns          int32         `envconfig:"OFICINA_DB_MIN_CONNS" default:"5"`
	ConnMaxLifetime   time.Duration `envconfig:"OFICINA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime   time.Duration `envconfig:"OFICINA_DB_CONN_MAX_IDLE_TIME" default:"30m"`
	StatementTimeout  time.Duration `envconfig:"OFICINA_DB_STATEMENT_TIMEOUT" default:"30s"`
	LockTimeout       time.Duration `envconfig:"OFICINA_DB_LOCK_TIMEOUT" default:"5s"`
	MigrationsOnStart bool          `envconfig:"OFICINA_DB_MIGRATE_ON_START" default:"false"`
}

type JWTConfig struct {
	Secret string `envconfig:"OFICINA_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"OFICINA_JWT_ISSUER" default:"oficina"`
}

type NumeratorConfig struct {
	Strategy  string `envconfig:"OFICINA_NUMERATOR_STRATEGY" default:"strict"`
	RangeSize int64  `envconfig:"OFICINA_NUMERATOR_RANGE_SIZE" default:"50"`
}

type WorkerConfig struct {
	PollInterval time.Duration `envconfig:"OFICINA_WORKER_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"OFICINA_WORKER_BATCH_SIZE" default:"100"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"OFICINA_METRICS_ENABLED" default:"true"`
}
