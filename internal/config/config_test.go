package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OFICINA_JWT_SECRET", "secret")
	t.Setenv("OFICINA_DB_DSN", "postgres://localhost/oficina")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, StorageBackendPostgres, cfg.App.Storage)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, 30*time.Second, cfg.DB.StatementTimeout)
	assert.Equal(t, "strict", cfg.Numerator.Strategy)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("OFICINA_JWT_SECRET", "secret")
	t.Setenv("OFICINA_DB_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MemoryStorage(t *testing.T) {
	t.Setenv("OFICINA_JWT_SECRET", "secret")
	t.Setenv("OFICINA_STORAGE", "memory")
	t.Setenv("OFICINA_DB_LOCK_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.DB.LockTimeout)
}

func TestLoad_RejectsUnknownStorage(t *testing.T) {
	t.Setenv("OFICINA_JWT_SECRET", "secret")
	t.Setenv("OFICINA_STORAGE", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDB_IgnoresServerSettings(t *testing.T) {
	t.Setenv("OFICINA_JWT_SECRET", "")
	t.Setenv("OFICINA_DB_DSN", "postgres://localhost/oficina")

	cfg, err := LoadDB()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/oficina", cfg.DSN)
	assert.Equal(t, int32(25), cfg.MaxConns)

	t.Setenv("OFICINA_DB_DSN", "")
	_, err = LoadDB()
	assert.Error(t, err)
}
