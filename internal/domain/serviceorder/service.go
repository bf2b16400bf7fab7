package serviceorder

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/events"
	"oficina/internal/core/id"
	"oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx"
	"oficina/internal/core/types"
	"oficina/internal/domain/inventory"
	"oficina/pkg/logger"
	"oficina/pkg/metrics"
)

var tracer = otel.Tracer("oficina/serviceorder")

// StockReconciler moves inventory in lockstep with the order lifecycle.
type StockReconciler interface {
	DeductForOrder(ctx context.Context, orderID id.ID, items []LineItem, userID id.ID) ([]inventory.Movement, error)
	ReverseForOrder(ctx context.Context, orderID id.ID, userID id.ID) ([]inventory.Movement, error)
}

// Service runs order operations. Each call loads the order, applies one
// aggregate method, then saves the order, its history entries and outbox
// events in one transaction.
type Service struct {
	repo      Repository
	history   HistoryRepository
	txManager tx.Manager
	numerator numerator.Generator
	stock     StockReconciler
	publisher events.Publisher
	metrics   *metrics.Orders
}

// NewService creates the order service. publisher and m may be nil.
func NewService(
	repo Repository,
	history HistoryRepository,
	txManager tx.Manager,
	numerator numerator.Generator,
	stock StockReconciler,
	publisher events.Publisher,
	m *metrics.Orders,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		history:   history,
		txManager: txManager,
		numerator: numerator,
		stock:     stock,
		publisher: publisher,
		metrics:   m,
	}
}

// StatusChangedPayload is the outbox payload of a status change.
type StatusChangedPayload struct {
	OrderID id.ID  `json:"orderId"`
	Number  int64  `json:"number"`
	From    Status `json:"from,omitempty"`
	To      Status `json:"to"`
	Note    string `json:"note,omitempty"`
	UserID  id.ID  `json:"userId"`
}

type actor struct {
	id   id.ID
	name string
}

func actorFrom(ctx context.Context) (actor, error) {
	u := appctx.GetUser(ctx)
	if u == nil || id.IsNil(u.UserID) {
		return actor{}, apperror.NewUnauthorized("acting user is required")
	}
	return actor{id: u.UserID, name: u.Name}, nil
}

// Create opens an order in QUOTE with the next display number.
func (s *Service) Create(ctx context.Context, in NewInput) (*ServiceOrder, error) {
	ctx, span := tracer.Start(ctx, "serviceorder.create")
	defer span.End()

	tenantID, err := tenant.RequireID(ctx)
	if err != nil {
		return nil, err
	}
	who, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	var order *ServiceOrder
	var created Transition
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.NextNumber(ctx, numerator.KeyServiceOrder)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		order, created, err = New(tenantID, number, in)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, order); err != nil {
			return err
		}
		return s.record(ctx, order, []Transition{created}, who)
	})
	if err != nil {
		return nil, err
	}

	order.MarkClean()
	s.metrics.IncTransition("", string(created.To))
	logger.Info(ctx, "service order created", "order_id", order.ID, "number", order.Number)
	return order, nil
}

// Get returns an order with its line items.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	return s.repo.GetByID(ctx, orderID)
}

// History returns the status history of an order, oldest first.
func (s *Service) History(ctx context.Context, orderID id.ID) ([]HistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.history.ListByOrder(ctx, orderID)
}

// --- Transitions ---

// Approve records the client decision; see ServiceOrder.Approve.
func (s *Service) Approve(ctx context.Context, orderID id.ID, clientApproved bool) (*ServiceOrder, error) {
	return s.mutate(ctx, "approve", orderID, 0, func(_ context.Context, o *ServiceOrder, _ actor) ([]Transition, error) {
		return o.Approve(clientApproved)
	})
}

// Start begins work on an approved order.
func (s *Service) Start(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	return s.mutate(ctx, "start", orderID, 0, func(_ context.Context, o *ServiceOrder, _ actor) ([]Transition, error) {
		return o.Start()
	})
}

// AwaitPart pauses work until a part arrives.
func (s *Service) AwaitPart(ctx context.Context, orderID id.ID, description string) (*ServiceOrder, error) {
	return s.mutate(ctx, "await_part", orderID, 0, func(_ context.Context, o *ServiceOrder, _ actor) ([]Transition, error) {
		return o.AwaitPart(description)
	})
}

// Resume continues a paused order.
func (s *Service) Resume(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	return s.mutate(ctx, "resume", orderID, 0, func(_ context.Context, o *ServiceOrder, _ actor) ([]Transition, error) {
		return o.Resume()
	})
}

// Complete finishes the order and deducts its stock lines. If any part is
// short the whole call fails and the order keeps its status.
func (s *Service) Complete(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	return s.mutate(ctx, "complete", orderID, 0, func(ctx context.Context, o *ServiceOrder, who actor) ([]Transition, error) {
		ts, err := o.Complete()
		if err != nil || len(ts) == 0 {
			return ts, err
		}
		if _, err := s.stock.DeductForOrder(ctx, o.ID, o.LineItems, who.id); err != nil {
			return nil, err
		}
		return ts, nil
	})
}

// Deliver hands the vehicle back.
func (s *Service) Deliver(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	return s.mutate(ctx, "deliver", orderID, 0, func(_ context.Context, o *ServiceOrder, _ actor) ([]Transition, error) {
		return o.Deliver()
	})
}

// Cancel voids the order. Cancelling a COMPLETED order reverses its stock
// deductions in the same transaction.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, reason string) (*ServiceOrder, error) {
	return s.mutate(ctx, "cancel", orderID, 0, func(ctx context.Context, o *ServiceOrder, who actor) ([]Transition, error) {
		wasCompleted := o.Status == StatusCompleted
		ts, err := o.Cancel(reason)
		if err != nil || len(ts) == 0 {
			return ts, err
		}
		if wasCompleted {
			if _, err := s.stock.ReverseForOrder(ctx, o.ID, who.id); err != nil {
				return nil, err
			}
		}
		return ts, nil
	})
}

// --- Editing ---

// AddLineItem appends a line. expectedRevision 0 skips the revision check.
func (s *Service) AddLineItem(ctx context.Context, orderID id.ID, expectedRevision int, in LineInput) (*ServiceOrder, error) {
	return s.edit(ctx, "add_line", orderID, expectedRevision, func(o *ServiceOrder) error {
		_, err := o.AddLineItem(in)
		return err
	})
}

// UpdateLineItem replaces a line's fields.
func (s *Service) UpdateLineItem(ctx context.Context, orderID id.ID, expectedRevision int, itemID id.ID, in LineInput) (*ServiceOrder, error) {
	return s.edit(ctx, "update_line", orderID, expectedRevision, func(o *ServiceOrder) error {
		_, err := o.UpdateLineItem(itemID, in)
		return err
	})
}

// RemoveLineItem deletes a line.
func (s *Service) RemoveLineItem(ctx context.Context, orderID id.ID, expectedRevision int, itemID id.ID) (*ServiceOrder, error) {
	return s.edit(ctx, "remove_line", orderID, expectedRevision, func(o *ServiceOrder) error {
		return o.RemoveLineItem(itemID)
	})
}

// SetLaborValue sets the labor charge.
func (s *Service) SetLaborValue(ctx context.Context, orderID id.ID, expectedRevision int, value types.Money) (*ServiceOrder, error) {
	return s.edit(ctx, "set_labor", orderID, expectedRevision, func(o *ServiceOrder) error {
		return o.SetLaborValue(value)
	})
}

// SetDiscount sets the order discounts.
func (s *Service) SetDiscount(ctx context.Context, orderID id.ID, expectedRevision int, percentage, absolute types.Money) (*ServiceOrder, error) {
	return s.edit(ctx, "set_discount", orderID, expectedRevision, func(o *ServiceOrder) error {
		return o.SetDiscount(percentage, absolute)
	})
}

// UpdateDetails edits technician, forecast, diagnosis and notes.
func (s *Service) UpdateDetails(ctx context.Context, orderID id.ID, expectedRevision int, d Details) (*ServiceOrder, error) {
	return s.edit(ctx, "update_details", orderID, expectedRevision, func(o *ServiceOrder) error {
		return o.UpdateDetails(d)
	})
}

func (s *Service) edit(ctx context.Context, op string, orderID id.ID, expectedRevision int, fn func(o *ServiceOrder) error) (*ServiceOrder, error) {
	return s.mutate(ctx, op, orderID, expectedRevision, func(_ context.Context, o *ServiceOrder, _ actor) ([]Transition, error) {
		return nil, fn(o)
	})
}

type mutateFunc func(ctx context.Context, o *ServiceOrder, who actor) ([]Transition, error)

// mutate loads the order, applies fn and persists the result, history and
// events in one transaction. Nothing is written when fn leaves the order clean.
func (s *Service) mutate(ctx context.Context, op string, orderID id.ID, expectedRevision int, fn mutateFunc) (*ServiceOrder, error) {
	ctx, span := tracer.Start(ctx, "serviceorder."+op, trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	if _, err := tenant.RequireID(ctx); err != nil {
		return nil, err
	}
	who, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	var order *ServiceOrder
	var applied []Transition
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if expectedRevision > 0 && o.Revision != expectedRevision {
			return apperror.NewConcurrentModification("service order", orderID).
				WithDetail("expected_revision", expectedRevision).
				WithDetail("current_revision", o.Revision)
		}
		o.MarkClean()

		ts, err := fn(ctx, o, who)
		if err != nil {
			return err
		}
		order = o
		if !o.Dirty() {
			return nil
		}

		o.Recalculate()
		if err := o.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		applied = ts
		return s.record(ctx, o, ts, who)
	})
	if err != nil {
		return nil, err
	}

	order.MarkClean()
	for _, t := range applied {
		s.metrics.IncTransition(string(t.From), string(t.To))
	}
	logger.Info(ctx, "service order updated",
		"order_id", order.ID,
		"operation", op,
		"status", order.Status,
		"revision", order.Revision,
	)
	return order, nil
}

// record appends one history entry and one outbox event per transition.
func (s *Service) record(ctx context.Context, o *ServiceOrder, ts []Transition, who actor) error {
	for _, t := range ts {
		if err := s.history.Append(ctx, NewHistoryEntry(o, t, who.id, who.name)); err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
		err := s.publisher.Publish(ctx, events.Event{
			AggregateType: events.AggregateServiceOrder,
			AggregateID:   o.ID,
			EventType:     events.TypeStatusChanged,
			Payload: StatusChangedPayload{
				OrderID: o.ID,
				Number:  o.Number,
				From:    t.From,
				To:      t.To,
				Note:    t.Note,
				UserID:  who.id,
			},
		})
		if err != nil {
			return fmt.Errorf("publish status change: %w", err)
		}
	}
	return nil
}
