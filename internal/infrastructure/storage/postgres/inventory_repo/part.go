// Package inventory_repo provides PostgreSQL implementations of the part and
// stock ledger repositories. Every query is filtered by the tenant in ctx.
package inventory_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/storage/postgres"
)

const partsTable = "parts"

// PartRepo implements inventory.PartRepository.
type PartRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	columns   []string
}

// NewPartRepo creates a part repository.
func NewPartRepo(txManager *postgres.TxManager) *PartRepo {
	return &PartRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[inventory.Part](),
	}
}

func (r *PartRepo) baseSelect(tenantID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).
		From(partsTable).
		Where(squirrel.Eq{"tenant_id": tenantID})
}

func (r *PartRepo) Create(ctx context.Context, part *inventory.Part) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	part.TenantID = tenantID

	sql, args, err := r.builder.Insert(partsTable).SetMap(postgres.StructToMap(part)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("part", "code", part.Code)
		}
		return fmt.Errorf("insert part: %w", err)
	}
	return nil
}

func (r *PartRepo) GetByID(ctx context.Context, partID id.ID) (*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, r.baseSelect(tenantID).Where(squirrel.Eq{"id": partID}), partID)
}

func (r *PartRepo) GetByCode(ctx context.Context, code string) (*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, r.baseSelect(tenantID).Where(squirrel.Eq{"code": code}), code)
}

// GetForUpdate issues SELECT ... FOR UPDATE. The wait is bounded by the
// transaction's lock_timeout; expiry becomes a retryable error in TxManager.
func (r *PartRepo) GetForUpdate(ctx context.Context, partID id.ID) (*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}
	return r.getOne(ctx, r.forUpdateQuery(tenantID, partID), partID)
}

func (r *PartRepo) forUpdateQuery(tenantID, partID id.ID) squirrel.SelectBuilder {
	return r.baseSelect(tenantID).Where(squirrel.Eq{"id": partID}).Suffix("FOR UPDATE")
}

func (r *PartRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*inventory.Part, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var part inventory.Part
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &part, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("part", key)
		}
		return nil, fmt.Errorf("get part: %w", err)
	}
	return &part, nil
}

func (r *PartRepo) UpdateQuantity(ctx context.Context, partID id.ID, quantity int) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	sql, args, err := r.builder.Update(partsTable).
		Set("quantity", quantity).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": partID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("part", partID)
	}
	return nil
}

func (r *PartRepo) updateQuery(tenantID id.ID, part *inventory.Part, now time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(partsTable).
		Set("description", part.Description).
		Set("minimum_quantity", part.MinimumQuantity).
		Set("unit_cost", part.UnitCost).
		Set("sale_price", part.SalePrice).
		Set("active", part.Active).
		Set("updated_at", now).
		Set("revision", squirrel.Expr("revision + 1")).
		Where(squirrel.Eq{"id": part.ID, "tenant_id": tenantID, "revision": part.Revision}).
		Suffix("RETURNING revision, quantity")
}

func (r *PartRepo) Update(ctx context.Context, part *inventory.Part) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	sql, args, err := r.updateQuery(tenantID, part, now).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var revision, quantity int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&revision, &quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, part.ID); getErr != nil {
			return getErr
		}
		return apperror.NewConcurrentModification("part", part.ID)
	}
	if err != nil {
		return fmt.Errorf("update part: %w", err)
	}
	part.Revision = revision
	part.Quantity = quantity
	part.UpdatedAt = now
	return nil
}

func (r *PartRepo) ListLowStock(ctx context.Context, limit int) ([]*inventory.Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	sql, args, err := r.lowStockQuery(tenantID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var parts []*inventory.Part
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &parts, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock: %w", err)
	}
	return parts, nil
}

func (r *PartRepo) lowStockQuery(tenantID id.ID, limit int) squirrel.SelectBuilder {
	return r.baseSelect(tenantID).
		Where(squirrel.Eq{"active": true}).
		Where("quantity <= minimum_quantity").
		OrderBy("code").
		Limit(uint64(limit))
}

var _ inventory.PartRepository = (*PartRepo)(nil)
