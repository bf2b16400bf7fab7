package inventory

import (
	"context"
	"fmt"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx"
	"oficina/internal/core/types"
	"oficina/pkg/logger"
)

const auditEntityPart = "part"

// Catalog manages part master data. It never writes Quantity directly;
// opening stock goes through the engine as an ENTRY.
type Catalog struct {
	parts     PartRepository
	stock     *Service
	txManager tx.Manager
	audit     AuditLogger
}

// NewCatalog creates the part catalog service. audit may be nil.
func NewCatalog(parts PartRepository, stock *Service, txManager tx.Manager, audit AuditLogger) *Catalog {
	if audit == nil {
		audit = NopAuditLogger{}
	}
	return &Catalog{parts: parts, stock: stock, txManager: txManager, audit: audit}
}

// CreatePartInput describes a new part.
type CreatePartInput struct {
	Code            string
	Description     string
	MinimumQuantity int
	UnitCost        types.Money
	SalePrice       types.Money
	InitialQuantity int
	UserID          id.ID
}

// CreatePart registers a part; a positive InitialQuantity is booked as an ENTRY.
func (c *Catalog) CreatePart(ctx context.Context, in CreatePartInput) (*Part, error) {
	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	if in.InitialQuantity < 0 {
		return nil, apperror.NewValidation("initial quantity cannot be negative").WithDetail("field", "initialQuantity")
	}

	part := NewPart(tenantID, in.Code, in.Description, in.MinimumQuantity, in.UnitCost, in.SalePrice)
	if err := part.Validate(ctx); err != nil {
		return nil, err
	}

	err = c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := c.parts.GetByCode(ctx, part.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return apperror.NewDuplicate(auditEntityPart, "code", part.Code)
		}

		if err := c.parts.Create(ctx, part); err != nil {
			return err
		}
		if err := c.audit.LogChange(ctx, auditEntityPart, part.ID, "create", nil, part); err != nil {
			return fmt.Errorf("audit part creation: %w", err)
		}

		if in.InitialQuantity > 0 {
			mv, err := c.stock.RecordEntry(ctx, EntryInput{
				PartID:    part.ID,
				Quantity:  in.InitialQuantity,
				UnitValue: part.UnitCost,
				UserID:    in.UserID,
				Reason:    "opening stock",
			})
			if err != nil {
				return err
			}
			part.Quantity = mv.QuantityAfter()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "part created", "part_id", part.ID, "code", part.Code)
	return part, nil
}

// UpdatePart edits descriptive and pricing fields. expectedRevision must match
// the stored revision.
func (c *Catalog) UpdatePart(ctx context.Context, partID id.ID, expectedRevision int, changes PartChanges) (*Part, error) {
	return c.edit(ctx, partID, expectedRevision, "update", func(p *Part) error {
		changes.Apply(p)
		return nil
	})
}

// DeactivatePart hides a part from new movements. Parts are never hard-deleted
// because ledger entries keep referencing them.
func (c *Catalog) DeactivatePart(ctx context.Context, partID id.ID, expectedRevision int) (*Part, error) {
	return c.edit(ctx, partID, expectedRevision, "deactivate", func(p *Part) error {
		if !p.Active {
			return apperror.NewBusinessRule(apperror.CodePartInactive, "part is already inactive")
		}
		p.Active = false
		return nil
	})
}

func (c *Catalog) edit(ctx context.Context, partID id.ID, expectedRevision int, action string, mutate func(p *Part) error) (*Part, error) {
	var updated *Part
	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := c.parts.GetByID(ctx, partID)
		if err != nil {
			return err
		}
		if current.Revision != expectedRevision {
			return apperror.NewConcurrentModification(auditEntityPart, partID).
				WithDetail("expected_revision", expectedRevision).
				WithDetail("current_revision", current.Revision)
		}

		next := *current
		if err := mutate(&next); err != nil {
			return err
		}
		if err := next.Validate(ctx); err != nil {
			return err
		}
		if err := c.parts.Update(ctx, &next); err != nil {
			return err
		}
		if err := c.audit.LogChange(ctx, auditEntityPart, partID, action, current, &next); err != nil {
			return fmt.Errorf("audit part %s: %w", action, err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "part "+action+"d", "part_id", partID, "revision", updated.Revision)
	return updated, nil
}

// GetPart returns a part by id.
func (c *Catalog) GetPart(ctx context.Context, partID id.ID) (*Part, error) {
	return c.parts.GetByID(ctx, partID)
}

// PartAudit returns the recorded catalog changes of a part, newest first.
func (c *Catalog) PartAudit(ctx context.Context, partID id.ID, limit int) ([]AuditChange, error) {
	if _, err := c.parts.GetByID(ctx, partID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return c.audit.History(ctx, auditEntityPart, partID, limit)
}

// ListLowStock returns active parts at or below their minimum quantity.
func (c *Catalog) ListLowStock(ctx context.Context, limit int) ([]*Part, error) {
	if limit <= 0 {
		limit = 100
	}
	return c.parts.ListLowStock(ctx, limit)
}
