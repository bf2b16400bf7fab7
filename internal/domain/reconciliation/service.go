// Package reconciliation moves stock in lockstep with service orders:
// deduction when an order completes and compensation when a completed
// order is cancelled.
package reconciliation

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tx"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/pkg/logger"
	"oficina/pkg/metrics"
)

var tracer = otel.Tracer("oficina/reconciliation")

// Ledger is the subset of the inventory engine used here.
type Ledger interface {
	Part(ctx context.Context, partID id.ID) (*inventory.Part, error)
	RecordOrderDeduction(ctx context.Context, in inventory.OrderDeductionInput) (*inventory.Movement, error)
	RecordReversal(ctx context.Context, original inventory.Movement, userID id.ID, note string) (*inventory.Movement, error)
	MovementsByOrder(ctx context.Context, orderID id.ID) ([]inventory.Movement, error)
}

// Service implements serviceorder.StockReconciler.
type Service struct {
	ledger    Ledger
	txManager tx.Manager
	metrics   *metrics.Inventory
}

// NewService creates the reconciliation service. m may be nil.
func NewService(ledger Ledger, txManager tx.Manager, m *metrics.Inventory) *Service {
	return &Service{ledger: ledger, txManager: txManager, metrics: m}
}

// Shortfall describes one part that cannot cover an order.
type Shortfall struct {
	PartID    id.ID  `json:"part_id"`
	Code      string `json:"code"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type demand struct {
	partID   id.ID
	quantity int
}

// DeductForOrder removes the stock consumed by an order's STOCK part lines.
//
// Phase one reads every part without locks and fails before any write when
// any part is short, listing all shortfalls. Phase two runs in one
// transaction: for each line it locks the part, re-checks the quantity and
// writes an ORDER_DEDUCTION. A failure in phase two rolls back every line.
// Parts are locked in id order so concurrent orders cannot deadlock;
// movements are returned in line order.
func (s *Service) DeductForOrder(ctx context.Context, orderID id.ID, items []serviceorder.LineItem, userID id.ID) (_ []inventory.Movement, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.deduct", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveReconciliation("deduct", err, time.Since(start)) }()

	lines := stockLines(items)
	if len(lines) == 0 {
		return []inventory.Movement{}, nil
	}

	if err := s.validate(ctx, aggregate(lines)); err != nil {
		return nil, err
	}

	movements := make([]inventory.Movement, len(lines))
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, i := range lockOrder(lines) {
			li := lines[i]
			mv, err := s.ledger.RecordOrderDeduction(ctx, inventory.OrderDeductionInput{
				PartID:    *li.PartID,
				OrderID:   orderID,
				Quantity:  li.Quantity,
				UnitValue: li.UnitValue,
				UserID:    userID,
				Note:      li.Description,
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeInsufficientStock {
					appErr.WithDetail("line_item_id", li.ID)
				}
				return err
			}
			movements[i] = *mv
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order stock deducted", "order_id", orderID, "movements", len(movements))
	return movements, nil
}

// validate is phase one. It holds no locks.
func (s *Service) validate(ctx context.Context, demands []demand) error {
	var shortfalls []Shortfall
	for _, d := range demands {
		part, err := s.ledger.Part(ctx, d.partID)
		if err != nil {
			return err
		}
		if !part.Active {
			return apperror.NewBusinessRule(apperror.CodePartInactive, fmt.Sprintf("part %s is inactive", part.Code)).
				WithDetail("part_id", part.ID)
		}
		if part.Quantity < d.quantity {
			shortfalls = append(shortfalls, Shortfall{
				PartID:    part.ID,
				Code:      part.Code,
				Requested: d.quantity,
				Available: part.Quantity,
			})
		}
	}
	if len(shortfalls) == 0 {
		return nil
	}

	first := shortfalls[0]
	logger.Warn(ctx, "order stock validation failed", "shortfalls", len(shortfalls), "part_id", first.PartID)
	return apperror.NewInsufficientStock(first.PartID, first.Requested, first.Available).
		WithDetail("shortfalls", shortfalls)
}

// ReverseForOrder writes one REVERSAL per ORDER_DEDUCTION of the order,
// restoring the same quantity at the same unit value. The original entries
// stay in the ledger. An order that was already reversed is refused.
func (s *Service) ReverseForOrder(ctx context.Context, orderID id.ID, userID id.ID) (_ []inventory.Movement, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.reverse", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveReconciliation("reverse", err, time.Since(start)) }()

	var reversals []inventory.Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		reversals = nil
		existing, err := s.ledger.MovementsByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		var deductions []inventory.Movement
		for _, mv := range existing {
			switch mv.Kind() {
			case inventory.KindReversal:
				return apperror.NewInvalidMovement("order stock was already reversed").
					WithDetail("order_id", orderID)
			case inventory.KindOrderDeduction:
				deductions = append(deductions, mv)
			}
		}

		slices.SortStableFunc(deductions, func(a, b inventory.Movement) int {
			return comparePartIDs(a.PartID(), b.PartID())
		})
		for _, d := range deductions {
			mv, err := s.ledger.RecordReversal(ctx, d, userID, "reversal of "+d.ID().String())
			if err != nil {
				return err
			}
			reversals = append(reversals, *mv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reversals == nil {
		reversals = []inventory.Movement{}
	}
	logger.Info(ctx, "order stock reversed", "order_id", orderID, "movements", len(reversals))
	return reversals, nil
}

func stockLines(items []serviceorder.LineItem) []serviceorder.LineItem {
	var out []serviceorder.LineItem
	for _, li := range items {
		if li.AffectsStock() && li.PartID != nil {
			out = append(out, li)
		}
	}
	return out
}

// lockOrder returns line indexes sorted by part id, stable within a part.
func lockOrder(lines []serviceorder.LineItem) []int {
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return comparePartIDs(*lines[a].PartID, *lines[b].PartID)
	})
	return order
}

func comparePartIDs(a, b id.ID) int {
	return bytes.Compare(a[:], b[:])
}

// aggregate sums requested quantities per part, keeping first-seen order.
func aggregate(lines []serviceorder.LineItem) []demand {
	idx := make(map[id.ID]int, len(lines))
	var out []demand
	for _, li := range lines {
		if i, ok := idx[*li.PartID]; ok {
			out[i].quantity += li.Quantity
			continue
		}
		idx[*li.PartID] = len(out)
		out = append(out, demand{partID: *li.PartID, quantity: li.Quantity})
	}
	return out
}

var _ serviceorder.StockReconciler = (*Service)(nil)
