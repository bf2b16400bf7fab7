// Package numerator provides the PostgreSQL implementation of display numbering.
// It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	corenumerator "oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/infrastructure/storage/postgres"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service hands out per-tenant sequence values from sys_sequences.
type Service struct {
	opts corenumerator.Options

	// txQuerier joins the caller's transaction, so a strict number is
	// released again when the business operation rolls back.
	txQuerier func(ctx context.Context) Querier
	// poolQuerier reserves cached ranges outside any transaction; a range
	// must never be rolled back while it is still handed out from memory.
	poolQuerier Querier

	cacheMu sync.Mutex
	// ranges is keyed by tenant and sequence key
	ranges map[string]*cachedRange
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service over a single querier.
// Use for tests and tooling.
func New(querier Querier, opts corenumerator.Options) *Service {
	return &Service{
		opts:        opts,
		txQuerier:   func(context.Context) Querier { return querier },
		poolQuerier: querier,
		ranges:      make(map[string]*cachedRange),
	}
}

// NewWithTxManager creates a numerator service bound to the application database.
func NewWithTxManager(txm *postgres.TxManager, pool *postgres.Pool, opts corenumerator.Options) *Service {
	return &Service{
		opts:        opts,
		txQuerier:   func(ctx context.Context) Querier { return txm.GetQuerier(ctx) },
		poolQuerier: pool.Pool,
		ranges:      make(map[string]*cachedRange),
	}
}

// NextNumber returns the next value of key for the tenant in ctx.
func (s *Service) NextNumber(ctx context.Context, key string) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("numerator service is not initialized")
	}

	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return 0, err
	}

	switch s.opts.Strategy {
	case corenumerator.StrategyCached:
		return s.nextCached(ctx, tenantID.String(), key)
	default:
		return s.nextStrict(ctx, tenantID.String(), key)
	}
}

// nextStrict fetches the next number directly from DB using UPSERT + RETURNING.
func (s *Service) nextStrict(ctx context.Context, tenantID, key string) (int64, error) {
	var num int64
	err := s.txQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (tenant_id, key, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, tenantID, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// nextCached serves from memory, reserving a new range from DB when exhausted.
func (s *Service) nextCached(ctx context.Context, tenantID, key string) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	cacheKey := tenantID + ":" + key
	rng, exists := s.ranges[cacheKey]
	if !exists {
		rng = &cachedRange{}
		s.ranges[cacheKey] = rng
	}

	if rng.current >= rng.max {
		size := s.opts.RangeSize
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.poolQuerier.QueryRow(ctx, `
			INSERT INTO sys_sequences (tenant_id, key, current_val)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, key) DO UPDATE SET current_val = sys_sequences.current_val + $3
			RETURNING current_val
		`, tenantID, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		// Reserved range is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}
