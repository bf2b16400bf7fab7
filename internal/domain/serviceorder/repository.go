package serviceorder

import (
	"context"

	"oficina/internal/core/id"
)

// Repository persists orders together with their line items.
// Every method is scoped to the tenant in ctx.
type Repository interface {
	Create(ctx context.Context, order *ServiceOrder) error

	// GetByID loads the order and its line items in position order.
	GetByID(ctx context.Context, orderID id.ID) (*ServiceOrder, error)

	// Update saves header fields and replaces line items, guarded by
	// order.Revision. On success the revision is incremented in place; a
	// mismatch fails with CONCURRENT_MODIFICATION.
	Update(ctx context.Context, order *ServiceOrder) error
}

// HistoryRepository is append-only.
type HistoryRepository interface {
	Append(ctx context.Context, entry HistoryEntry) error

	// ListByOrder returns entries oldest first.
	ListByOrder(ctx context.Context, orderID id.ID) ([]HistoryEntry, error)
}
