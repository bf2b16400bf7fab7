package serviceorder_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/id"
	"oficina/internal/core/types"
	"oficina/internal/domain/serviceorder"
)

func newOrder(t *testing.T) *serviceorder.ServiceOrder {
	t.Helper()
	partID := id.New()
	o, _, err := serviceorder.New(id.New(), 7, serviceorder.NewInput{
		VehicleID:          id.New(),
		ProblemDescription: "noise when braking",
		LaborValue:         types.MustMoney("80"),
		Lines: []serviceorder.LineInput{
			{Kind: serviceorder.LinePart, Origin: serviceorder.OriginStock, PartID: &partID, Description: "pad", Quantity: 2, UnitValue: types.MustMoney("20")},
			{Kind: serviceorder.LineLabor, Description: "bleed", Quantity: 1, UnitValue: types.MustMoney("30")},
		},
	})
	require.NoError(t, err)
	return o
}

func TestUpdateQuery_KeepsIdentityColumns(t *testing.T) {
	repo := NewOrderRepo(nil)
	o := newOrder(t)
	o.Revision = 3

	sql, args, err := repo.updateQuery(o.TenantID, o, time.Now()).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "UPDATE service_orders SET ")
	assert.Contains(t, sql, "revision = revision + 1")
	assert.Contains(t, sql, "status = $")
	assert.Contains(t, sql, "final_value = $")
	assert.Contains(t, sql, "RETURNING revision")
	for _, col := range []string{"number = $", "opened_at = $", "created_at = $", "tenant_id = $1"} {
		assert.NotContains(t, sql, col)
	}
	assert.NotContains(t, sql, "line_items")
	assert.Contains(t, args, 3)
}

func TestItemRows_FollowLineOrder(t *testing.T) {
	o := newOrder(t)
	rows := itemRows(o.TenantID, o)

	require.Len(t, rows, 2)
	for i, row := range rows {
		require.Len(t, row, len(itemColumns))
		assert.Equal(t, o.LineItems[i].ID, row[0])
		assert.Equal(t, o.ID, row[2])
		assert.Equal(t, i, row[3])
	}
	assert.Equal(t, "PART", rows[0][4])
	assert.Equal(t, "STOCK", rows[0][5])
	assert.Equal(t, "LABOR", rows[1][4])
	assert.Equal(t, "", rows[1][5])
	assert.Nil(t, rows[1][6])
}

func TestItemsQuery_OrdersByPosition(t *testing.T) {
	repo := NewOrderRepo(nil)
	sql, args, err := repo.itemsQuery(id.New(), id.New()).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM service_order_items")
	assert.Contains(t, sql, "ORDER BY position")
	assert.NotContains(t, sql, "position,", "position is not scanned")
	assert.Len(t, args, 2)
}

func TestHistoryListQuery(t *testing.T) {
	repo := NewHistoryRepo(nil)
	sql, _, err := repo.listQuery(id.New(), id.New()).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM service_order_status_history")
	assert.Contains(t, sql, "ORDER BY changed_at, id")
}
