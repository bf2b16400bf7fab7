// Package worker drains the transactional outbox in the background.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"oficina/internal/core/events"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/pkg/logger"
)

// Notifier delivers domain events to people. The default implementation
// writes them to the log.
type Notifier interface {
	StatusChanged(ctx context.Context, p serviceorder.StatusChangedPayload) error
	LowStock(ctx context.Context, p inventory.LowStockPayload) error
}

// Dispatcher routes outbox messages by event type.
type Dispatcher struct {
	notifier Notifier
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher. A nil notifier logs events.
func NewDispatcher(notifier Notifier, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Dispatcher{notifier: notifier, log: log}
}

// Handle implements postgres.OutboxHandler. Unknown event types are
// acknowledged so they do not block the queue.
func (d *Dispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	switch msg.EventType {
	case events.TypeStatusChanged:
		var p serviceorder.StatusChangedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
		}
		return d.notifier.StatusChanged(ctx, p)
	case events.TypeLowStock:
		var p inventory.LowStockPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
		}
		return d.notifier.LowStock(ctx, p)
	default:
		d.log.WithContext(ctx).Debugw("skipping unknown outbox event",
			"message_id", msg.ID, "event_type", msg.EventType)
		return nil
	}
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return LogNotifier{log: log.WithComponent("notifier")}
}

func (n LogNotifier) StatusChanged(ctx context.Context, p serviceorder.StatusChangedPayload) error {
	n.log.WithContext(ctx).Infow("service order status changed",
		"order_id", p.OrderID, "number", p.Number, "from", p.From, "to", p.To, "note", p.Note)
	return nil
}

func (n LogNotifier) LowStock(ctx context.Context, p inventory.LowStockPayload) error {
	n.log.WithContext(ctx).Warnw("part below minimum stock",
		"part_id", p.PartID, "code", p.Code, "quantity", p.Quantity, "minimum", p.MinimumQuantity)
	return nil
}

var _ postgres.OutboxHandler = (*Dispatcher)(nil)
