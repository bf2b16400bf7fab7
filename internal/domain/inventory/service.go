package inventory

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"oficina/internal/core/apperror"
	"oficina/internal/core/events"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx"
	"oficina/internal/core/types"
	"oficina/pkg/logger"
	"oficina/pkg/metrics"
)

var tracer = otel.Tracer("oficina/inventory")

// Service is the reconciliation engine: every stock change locks the part row,
// re-reads the quantity under the lock, writes the new quantity and appends
// one ledger entry, all in one transaction.
type Service struct {
	parts     PartRepository
	movements MovementRepository
	txManager tx.Manager
	publisher events.Publisher
	metrics   *metrics.Inventory
}

// NewService creates the inventory engine. publisher and m may be nil.
func NewService(parts PartRepository, movements MovementRepository, txManager tx.Manager, publisher events.Publisher, m *metrics.Inventory) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		parts:     parts,
		movements: movements,
		txManager: txManager,
		publisher: publisher,
		metrics:   m,
	}
}

// EntryInput describes a stock receipt.
type EntryInput struct {
	PartID    id.ID
	Quantity  int
	UnitValue types.Money
	UserID    id.ID
	Reason    string
	Note      string
}

// ExitInput describes a manual stock withdrawal.
type ExitInput struct {
	PartID    id.ID
	Quantity  int
	UnitValue types.Money
	UserID    id.ID
	Reason    string
	Note      string
}

// AdjustmentInput sets the quantity after a physical count.
type AdjustmentInput struct {
	PartID      id.ID
	NewQuantity int
	UnitValue   types.Money
	UserID      id.ID
	Reason      string
	Note        string
}

// OrderDeductionInput consumes stock for a completed service order.
type OrderDeductionInput struct {
	PartID    id.ID
	OrderID   id.ID
	Quantity  int
	UnitValue types.Money
	UserID    id.ID
	Note      string
}

// RecordEntry increases the part quantity.
func (s *Service) RecordEntry(ctx context.Context, in EntryInput) (*Movement, error) {
	return s.apply(ctx, KindEntry, in.PartID, func(part *Part, h MovementHeader) (Movement, error) {
		h.UserID, h.UnitValue, h.Reason, h.Note = in.UserID, in.UnitValue, in.Reason, in.Note
		return NewEntry(h, part.Quantity, in.Quantity)
	})
}

// RecordExit decreases the part quantity, failing with InsufficientStock
// when more is requested than available.
func (s *Service) RecordExit(ctx context.Context, in ExitInput) (*Movement, error) {
	return s.apply(ctx, KindExit, in.PartID, func(part *Part, h MovementHeader) (Movement, error) {
		h.UserID, h.UnitValue, h.Reason, h.Note = in.UserID, in.UnitValue, in.Reason, in.Note
		return NewExit(h, part.Quantity, in.Quantity)
	})
}

// RecordAdjustment sets the part quantity to in.NewQuantity.
// No-op adjustments are rejected with InvalidMovement.
func (s *Service) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*Movement, error) {
	return s.apply(ctx, KindAdjustment, in.PartID, func(part *Part, h MovementHeader) (Movement, error) {
		h.UserID, h.UnitValue, h.Reason, h.Note = in.UserID, in.UnitValue, in.Reason, in.Note
		return NewAdjustment(h, part.Quantity, in.NewQuantity)
	})
}

// RecordOrderDeduction removes stock consumed by a service order.
func (s *Service) RecordOrderDeduction(ctx context.Context, in OrderDeductionInput) (*Movement, error) {
	return s.apply(ctx, KindOrderDeduction, in.PartID, func(part *Part, h MovementHeader) (Movement, error) {
		orderID := in.OrderID
		h.ServiceOrderID = &orderID
		h.UserID, h.UnitValue, h.Note = in.UserID, in.UnitValue, in.Note
		return NewOrderDeduction(h, part.Quantity, in.Quantity)
	})
}

// RecordReversal compensates an ORDER_DEDUCTION with a REVERSAL of the same
// quantity and unit value. The original entry is left untouched.
func (s *Service) RecordReversal(ctx context.Context, original Movement, userID id.ID, note string) (*Movement, error) {
	if original.Kind() != KindOrderDeduction {
		return nil, apperror.NewInvalidMovement("only order deductions can be reversed").
			WithDetail("movement_id", original.ID())
	}
	return s.apply(ctx, KindReversal, original.PartID(), func(part *Part, h MovementHeader) (Movement, error) {
		h.ServiceOrderID = original.ServiceOrderID()
		h.UserID, h.UnitValue, h.Note = userID, original.UnitValue(), note
		return NewReversal(h, part.Quantity, original.Quantity())
	})
}

type buildFunc func(part *Part, h MovementHeader) (Movement, error)

// apply runs lock → validate → compute → write quantity → append ledger entry
// as one unit of work. Nested calls join the caller's transaction.
func (s *Service) apply(ctx context.Context, kind MovementKind, partID id.ID, build buildFunc) (*Movement, error) {
	ctx, span := tracer.Start(ctx, "inventory.apply", trace.WithAttributes(
		attribute.String("movement.kind", string(kind)),
		attribute.String("part.id", partID.String()),
	))
	defer span.End()

	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}

	var result Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		part, err := s.parts.GetForUpdate(ctx, partID)
		if err != nil {
			return err
		}
		// Reversals stay possible on deactivated parts so history can always be compensated.
		if !part.Active && kind != KindReversal {
			return apperror.NewBusinessRule(apperror.CodePartInactive, "part is inactive").
				WithDetail("part_id", partID)
		}

		mv, err := build(part, MovementHeader{TenantID: tenantID, PartID: part.ID})
		if err != nil {
			return err
		}
		if err := mv.Validate(); err != nil {
			return err
		}

		if err := s.parts.UpdateQuantity(ctx, part.ID, mv.QuantityAfter()); err != nil {
			return fmt.Errorf("update part quantity: %w", err)
		}
		if err := s.movements.Create(ctx, mv); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}

		if kind.Sign() < 0 && mv.QuantityAfter() <= part.MinimumQuantity {
			if err := s.publishLowStock(ctx, part, mv); err != nil {
				return err
			}
		}

		result = mv
		return nil
	})
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			s.metrics.IncRejected(appErr.Code)
		}
		return nil, err
	}

	s.metrics.ObserveMovement(string(kind), result.Quantity())
	logger.Info(ctx, "stock movement recorded",
		"movement_id", result.ID(),
		"part_id", partID,
		"kind", kind,
		"quantity", result.Quantity(),
		"before", result.QuantityBefore(),
		"after", result.QuantityAfter(),
	)
	return &result, nil
}

// LowStockPayload is the outbox payload of a low stock notification.
type LowStockPayload struct {
	PartID          id.ID  `json:"partId"`
	Code            string `json:"code"`
	Quantity        int    `json:"quantity"`
	MinimumQuantity int    `json:"minimumQuantity"`
	MovementID      id.ID  `json:"movementId"`
}

func (s *Service) publishLowStock(ctx context.Context, part *Part, mv Movement) error {
	err := s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregatePart,
		AggregateID:   part.ID,
		EventType:     events.TypeLowStock,
		Payload: LowStockPayload{
			PartID:          part.ID,
			Code:            part.Code,
			Quantity:        mv.QuantityAfter(),
			MinimumQuantity: part.MinimumQuantity,
			MovementID:      mv.ID(),
		},
	})
	if err != nil {
		return fmt.Errorf("publish low stock: %w", err)
	}
	return nil
}

// --- Queries ---

// Part returns the part without taking a lock.
func (s *Service) Part(ctx context.Context, partID id.ID) (*Part, error) {
	return s.parts.GetByID(ctx, partID)
}

// CurrentQuantity returns the current stock level of a part.
func (s *Service) CurrentQuantity(ctx context.Context, partID id.ID) (int, error) {
	part, err := s.parts.GetByID(ctx, partID)
	if err != nil {
		return 0, err
	}
	return part.Quantity, nil
}

// MovementsByPart returns the ledger of a part, oldest first.
func (s *Service) MovementsByPart(ctx context.Context, partID id.ID, filter MovementFilter) ([]Movement, error) {
	if _, err := s.parts.GetByID(ctx, partID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultMovementFilter().Limit
	}
	return s.movements.ListByPart(ctx, partID, filter)
}

// MovementsByOrder returns every ledger entry referencing a service order.
func (s *Service) MovementsByOrder(ctx context.Context, orderID id.ID) ([]Movement, error) {
	return s.movements.ListByOrder(ctx, orderID)
}
