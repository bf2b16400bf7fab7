package numerator

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/id"
	corenumerator "oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences per (tenant, key).
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]int64)
	}
	m.calls++

	// Strict passes (tenant, key); cached passes (tenant, key, size).
	increment := int64(1)
	if len(args) == 3 {
		increment = args[2].(int64)
	}
	k := args[0].(string) + ":" + args[1].(string)
	m.values[k] += increment
	return &mockRow{val: m.values[k]}
}

func tenantCtx() context.Context {
	return tenant.WithID(context.Background(), id.New())
}

func TestNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, corenumerator.DefaultOptions())
	ctx := tenantCtx()

	first, err := svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
	require.NoError(t, err)
	second, err := svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, 2, q.calls)
}

func TestNextNumber_TenantsAreIndependent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, corenumerator.DefaultOptions())

	a, err := svc.NextNumber(tenantCtx(), corenumerator.KeyServiceOrder)
	require.NoError(t, err)
	b, err := svc.NextNumber(tenantCtx(), corenumerator.KeyServiceOrder)
	require.NoError(t, err)

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(1), b)
}

func TestNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10})
	ctx := tenantCtx()

	// First call reserves 1..10.
	num, err := svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
	require.NoError(t, err)
	assert.Equal(t, int64(1), num)
	assert.Equal(t, 1, q.calls)

	// Served from memory.
	num, err = svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
	require.NoError(t, err)
	assert.Equal(t, int64(2), num)
	assert.Equal(t, 1, q.calls)

	for i := 0; i < 8; i++ {
		_, err = svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
		require.NoError(t, err)
	}

	// Range exhausted: next reservation is 11..20.
	num, err = svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
	require.NoError(t, err)
	assert.Equal(t, int64(11), num)
	assert.Equal(t, 2, q.calls)
}

func TestNextNumber_CachedConcurrentIsStrictlyUnique(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q, corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 7})
	ctx := tenantCtx()

	const workers = 8
	const perWorker = 25

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n, err := svc.NextNumber(ctx, corenumerator.KeyServiceOrder)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[n], "duplicate number %d", n)
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestNextNumber_RequiresTenant(t *testing.T) {
	svc := New(&mockQuerier{}, corenumerator.DefaultOptions())

	_, err := svc.NextNumber(context.Background(), corenumerator.KeyServiceOrder)
	assert.Error(t, err)
}
