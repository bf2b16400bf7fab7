package inventory

import (
	"context"
	"time"

	"oficina/internal/core/id"
)

// PartRepository persists parts. Every method is scoped to the tenant in ctx.
type PartRepository interface {
	Create(ctx context.Context, part *Part) error

	// GetByID reads without locking.
	GetByID(ctx context.Context, partID id.ID) (*Part, error)

	GetByCode(ctx context.Context, code string) (*Part, error)

	// GetForUpdate reads and takes an exclusive lock on the part row that is
	// held until the surrounding transaction ends. Must be called inside a
	// transaction.
	GetForUpdate(ctx context.Context, partID id.ID) (*Part, error)

	// UpdateQuantity writes the stock level. Revision is not touched.
	UpdateQuantity(ctx context.Context, partID id.ID, quantity int) error

	// Update writes descriptive and pricing fields guarded by part.Revision
	// and increments it. Quantity is not written.
	Update(ctx context.Context, part *Part) error

	// ListLowStock returns active parts at or below their minimum.
	ListLowStock(ctx context.Context, limit int) ([]*Part, error)
}

// MovementFilter narrows ledger queries.
type MovementFilter struct {
	Kinds  []MovementKind
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// DefaultMovementFilter returns the first page of all kinds.
func DefaultMovementFilter() MovementFilter {
	return MovementFilter{Limit: 100}
}

// MovementRepository is append-only: there is no update or delete.
type MovementRepository interface {
	Create(ctx context.Context, movement Movement) error

	// ListByPart returns movements of a part, oldest first.
	ListByPart(ctx context.Context, partID id.ID, filter MovementFilter) ([]Movement, error)

	// ListByOrder returns movements referencing a service order, oldest first.
	ListByOrder(ctx context.Context, orderID id.ID) ([]Movement, error)
}

// AuditChange is one recorded catalog change. Changes maps a column to its
// old and new value; a creation lists every column.
type AuditChange struct {
	Action  string
	UserID  *id.ID
	Changes map[string]any
	At      time.Time
}

// AuditLogger records catalog changes.
type AuditLogger interface {
	// LogChange stores the difference between before and after; before is nil on creation.
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, before, after any) error
	// History returns the changes of one entity, newest first.
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditChange, error)
}

// NopAuditLogger discards audit records.
type NopAuditLogger struct{}

// LogChange implements AuditLogger.
func (NopAuditLogger) LogChange(context.Context, string, id.ID, string, any, any) error { return nil }

// History implements AuditLogger.
func (NopAuditLogger) History(context.Context, string, id.ID, int) ([]AuditChange, error) {
	return nil, nil
}
