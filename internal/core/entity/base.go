// Package entity provides the fields shared by all tenant-owned aggregates.
package entity

import (
	"context"
	"time"

	"oficina/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Base contains common fields for parts and service orders.
type Base struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// TenantID scopes the row to one workshop
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	// Revision for optimistic locking of descriptive fields.
	// Stock quantity is guarded by row locks and never bumps it.
	Revision int `db:"revision" json:"revision"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBase creates a Base with generated ID and timestamps.
func NewBase(tenantID id.ID) Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		TenantID:  tenantID,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp and increments revision.
func (b *Base) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Revision++
}
