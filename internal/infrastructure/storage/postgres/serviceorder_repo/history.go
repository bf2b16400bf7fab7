package serviceorder_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/postgres"
)

const historyTable = "service_order_status_history"

// HistoryRepo implements serviceorder.HistoryRepository. Rows are never
// updated or deleted.
type HistoryRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

func NewHistoryRepo(txManager *postgres.TxManager) *HistoryRepo {
	return &HistoryRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[serviceorder.HistoryEntry](),
	}
}

func (r *HistoryRepo) Append(ctx context.Context, entry serviceorder.HistoryEntry) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	entry.TenantID = tenantID

	sql, args, err := r.builder.Insert(historyTable).SetMap(postgres.StructToMap(entry)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *HistoryRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]serviceorder.HistoryEntry, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := r.listQuery(tenantID, orderID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var entries []serviceorder.HistoryEntry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select status history: %w", err)
	}
	return entries, nil
}

// listQuery orders by id as a tie-break; ids are UUIDv7 and follow insert order.
func (r *HistoryRepo) listQuery(tenantID, orderID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From(historyTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "service_order_id": orderID}).
		OrderBy("changed_at", "id")
}

var _ serviceorder.HistoryRepository = (*HistoryRepo)(nil)
