package inventory_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/id"
	"oficina/internal/core/types"
	"oficina/internal/domain/inventory"
)

func TestPartColumns_IncludeBaseFields(t *testing.T) {
	repo := NewPartRepo(nil)
	for _, col := range []string{"id", "tenant_id", "revision", "code", "quantity", "minimum_quantity", "active"} {
		assert.Contains(t, repo.columns, col)
	}
}

func TestForUpdateQuery(t *testing.T) {
	repo := NewPartRepo(nil)
	tenantID, partID := id.New(), id.New()

	sql, args, err := repo.forUpdateQuery(tenantID, partID).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT "))
	assert.True(t, strings.HasSuffix(sql, "FOR UPDATE"), sql)
	assert.Contains(t, sql, "FROM parts")
	assert.Contains(t, sql, "tenant_id = $1")
	assert.Contains(t, sql, "id = $2")
	assert.Equal(t, []any{tenantID.String(), partID.String()}, args, "uuid args are bound through driver.Valuer")
}

func TestUpdateQuery_GuardsRevisionAndLeavesQuantity(t *testing.T) {
	repo := NewPartRepo(nil)
	part := inventory.NewPart(id.New(), "P-1", "Pad", 2, types.MustMoney("10"), types.MustMoney("20"))
	part.Revision = 4

	sql, args, err := repo.updateQuery(part.TenantID, part, time.Now()).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "revision = revision + 1")
	assert.Contains(t, sql, "revision = $")
	assert.Contains(t, sql, "RETURNING revision, quantity")
	assert.NotContains(t, sql, " quantity = $", "stock only changes through the ledger")
	assert.Contains(t, args, 4)
}

func TestLowStockQuery(t *testing.T) {
	repo := NewPartRepo(nil)
	sql, _, err := repo.lowStockQuery(id.New(), 25).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "quantity <= minimum_quantity")
	assert.Contains(t, sql, "ORDER BY code")
	assert.Contains(t, sql, "LIMIT 25")
}

func TestByPartQuery_Filters(t *testing.T) {
	repo := NewMovementRepo(nil)
	tenantID, partID := id.New(), id.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	tests := []struct {
		name     string
		filter   inventory.MovementFilter
		contains []string
		absent   []string
		nArgs    int
	}{
		{
			name:     "no filters",
			filter:   inventory.MovementFilter{},
			contains: []string{"FROM stock_movements", "ORDER BY occurred_at, id"},
			absent:   []string{"kind IN", "LIMIT", "OFFSET", "occurred_at >="},
			nArgs:    2,
		},
		{
			name:     "kinds",
			filter:   inventory.MovementFilter{Kinds: []inventory.MovementKind{inventory.KindEntry, inventory.KindExit}},
			contains: []string{"kind IN ($"},
			nArgs:    4,
		},
		{
			name:     "period and page",
			filter:   inventory.MovementFilter{From: &from, To: &to, Limit: 10, Offset: 20},
			contains: []string{"occurred_at >= $", "occurred_at < $", "LIMIT 10", "OFFSET 20"},
			nArgs:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.byPartQuery(tenantID, partID, tt.filter).ToSql()
			require.NoError(t, err)
			for _, frag := range tt.contains {
				assert.Contains(t, sql, frag)
			}
			for _, frag := range tt.absent {
				assert.NotContains(t, sql, frag)
			}
			assert.Len(t, args, tt.nArgs)
		})
	}
}
