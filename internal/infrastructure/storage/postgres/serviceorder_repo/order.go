// Package serviceorder_repo stores service orders, their line items and
// status history in PostgreSQL.
package serviceorder_repo

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
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/postgres"
)

const (
	ordersTable = "service_orders"
	itemsTable  = "service_order_items"
)

// itemColumns is the COPY column order for line items.
var itemColumns = []string{
	"id", "tenant_id", "order_id", "position",
	"kind", "origin", "part_id", "description",
	"quantity", "unit_value", "discount", "total",
}

// OrderRepo implements serviceorder.Repository.
type OrderRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
	columns   []string
	lineCols  []string
}

// NewOrderRepo creates a service order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txManager: txManager,
		batch:     postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:   postgres.ExtractDBColumns[serviceorder.ServiceOrder](),
		lineCols:  postgres.ExtractDBColumns[serviceorder.LineItem](),
	}
}

func (r *OrderRepo) Create(ctx context.Context, order *serviceorder.ServiceOrder) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}
	order.TenantID = tenantID

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.Insert(ordersTable).SetMap(postgres.StructToMap(order)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			if postgres.IsUniqueViolation(err) {
				return apperror.NewDuplicate("service order", "number", fmt.Sprint(order.Number))
			}
			return fmt.Errorf("insert service order: %w", err)
		}
		return r.insertItems(ctx, tenantID, order)
	})
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*serviceorder.ServiceOrder, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder.Select(r.columns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var order serviceorder.ServiceOrder
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("service order", orderID)
		}
		return nil, fmt.Errorf("get service order: %w", err)
	}

	sql, args, err = r.itemsQuery(tenantID, orderID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &order.LineItems, sql, args...); err != nil {
		return nil, fmt.Errorf("select line items: %w", err)
	}
	return &order, nil
}

func (r *OrderRepo) itemsQuery(tenantID, orderID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(r.lineCols...).
		From(itemsTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "order_id": orderID}).
		OrderBy("position")
}

func (r *OrderRepo) Update(ctx context.Context, order *serviceorder.ServiceOrder) error {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return err
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		sql, args, err := r.updateQuery(tenantID, order, now).ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		var revision int
		err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&revision)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrStale(ctx, tenantID, order.ID)
		}
		if err != nil {
			return fmt.Errorf("update service order: %w", err)
		}

		del, delArgs, err := r.builder.Delete(itemsTable).
			Where(squirrel.Eq{"tenant_id": tenantID, "order_id": order.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		if err := r.insertItems(ctx, tenantID, order); err != nil {
			return err
		}

		order.Revision = revision
		order.UpdatedAt = now
		return nil
	})
}

// updateQuery writes every mutable header column. Identity columns
// (id, tenant_id, number, opened_at, created_at) are never rewritten.
func (r *OrderRepo) updateQuery(tenantID id.ID, order *serviceorder.ServiceOrder, now time.Time) squirrel.UpdateBuilder {
	fields := postgres.StructToMap(order)
	for _, col := range []string{"id", "tenant_id", "number", "opened_at", "created_at", "revision"} {
		delete(fields, col)
	}
	fields["updated_at"] = now
	fields["revision"] = squirrel.Expr("revision + 1")

	return r.builder.Update(ordersTable).
		SetMap(fields).
		Where(squirrel.Eq{"id": order.ID, "tenant_id": tenantID, "revision": order.Revision}).
		Suffix("RETURNING revision")
}

func (r *OrderRepo) missingOrStale(ctx context.Context, tenantID, orderID id.ID) error {
	sql, args, err := r.builder.Select("1").
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var one int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound("service order", orderID)
	}
	if err != nil {
		return fmt.Errorf("check service order: %w", err)
	}
	return apperror.NewConcurrentModification("service order", orderID)
}

func (r *OrderRepo) insertItems(ctx context.Context, tenantID id.ID, order *serviceorder.ServiceOrder) error {
	if _, err := r.batch.CopyFromSlice(ctx, itemsTable, itemColumns, itemRows(tenantID, order)); err != nil {
		return fmt.Errorf("copy line items: %w", err)
	}
	return nil
}

func itemRows(tenantID id.ID, order *serviceorder.ServiceOrder) [][]any {
	rows := make([][]any, 0, len(order.LineItems))
	for i, li := range order.LineItems {
		rows = append(rows, []any{
			li.ID, tenantID, order.ID, i,
			string(li.Kind), string(li.Origin), li.PartID, li.Description,
			li.Quantity, li.UnitValue, li.Discount, li.Total,
		})
	}
	return rows
}

var _ serviceorder.Repository = (*OrderRepo)(nil)
