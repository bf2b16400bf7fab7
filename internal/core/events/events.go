// Package events defines domain events written to the transactional outbox.
// Delivery (email, messaging) happens outside the core, in the worker.
package events

import (
	"context"

	"oficina/internal/core/id"
)

// Event types.
const (
	TypeStatusChanged = "service_order.status_changed"
	TypeLowStock      = "part.low_stock"
)

// Aggregate types.
const (
	AggregateServiceOrder = "service_order"
	AggregatePart         = "part"
)

// Event is a fact to be published after the surrounding transaction commits.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher records events inside the caller's transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

var _ Publisher = NopPublisher{}
