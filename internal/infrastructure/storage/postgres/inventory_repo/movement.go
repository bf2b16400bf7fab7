package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/storage/postgres"
)

const movementsTable = "stock_movements"

// MovementRepo implements inventory.MovementRepository. It only inserts and
// reads; the table has no UPDATE or DELETE path.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewMovementRepo creates a ledger repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[inventory.MovementRecord](),
	}
}

func (r *MovementRepo) Create(ctx context.Context, mv inventory.Movement) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	if mv.TenantID() != tenantID {
		return apperror.NewInvalidMovement("movement tenant does not match request tenant")
	}
	if err := mv.Validate(); err != nil {
		return err
	}

	sql, args, err := r.builder.Insert(movementsTable).SetMap(postgres.StructToMap(mv.Record())).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *MovementRepo) ListByPart(ctx context.Context, partID id.ID, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, r.byPartQuery(tenantID, partID, filter))
}

func (r *MovementRepo) byPartQuery(tenantID, partID id.ID, filter inventory.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(r.columns...).
		From(movementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "part_id": partID})
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		q = q.Where(squirrel.Eq{"kind": kinds})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"occurred_at": *filter.To})
	}
	q = q.OrderBy("occurred_at", "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *MovementRepo) ListByOrder(ctx context.Context, orderID id.ID) ([]inventory.Movement, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	q := r.builder.Select(r.columns...).
		From(movementsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "service_order_id": orderID}).
		OrderBy("occurred_at", "id")
	return r.list(ctx, q)
}

func (r *MovementRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]inventory.Movement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var records []inventory.MovementRecord
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	out := make([]inventory.Movement, 0, len(records))
	for _, rec := range records {
		mv, err := inventory.RestoreMovement(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, nil
}

var _ inventory.MovementRepository = (*MovementRepo)(nil)
