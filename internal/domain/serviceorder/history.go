package serviceorder

import (
	"time"

	"oficina/internal/core/id"
)

// HistoryEntry is an immutable record of one status transition.
type HistoryEntry struct {
	ID             id.ID     `db:"id" json:"id"`
	TenantID       id.ID     `db:"tenant_id" json:"-"`
	ServiceOrderID id.ID     `db:"service_order_id" json:"serviceOrderId"`
	PreviousStatus *Status   `db:"previous_status" json:"previousStatus,omitempty"`
	NewStatus      Status    `db:"new_status" json:"newStatus"`
	UserID         id.ID     `db:"user_id" json:"userId"`
	UserName       string    `db:"user_name" json:"userName"`
	Note           string    `db:"note" json:"note,omitempty"`
	ChangedAt      time.Time `db:"changed_at" json:"changedAt"`
}

// NewHistoryEntry records t for order o, snapshotting the acting user's name.
func NewHistoryEntry(o *ServiceOrder, t Transition, userID id.ID, userName string) HistoryEntry {
	e := HistoryEntry{
		ID:             id.New(),
		TenantID:       o.TenantID,
		ServiceOrderID: o.ID,
		NewStatus:      t.To,
		UserID:         userID,
		UserName:       userName,
		Note:           t.Note,
		ChangedAt:      time.Now().UTC(),
	}
	if t.From != "" {
		from := t.From
		e.PreviousStatus = &from
	}
	return e
}
