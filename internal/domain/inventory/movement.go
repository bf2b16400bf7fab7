package inventory

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

// MovementKind classifies a ledger entry.
type MovementKind string

const (
	KindEntry          MovementKind = "ENTRY"
	KindExit           MovementKind = "EXIT"
	KindAdjustment     MovementKind = "ADJUSTMENT"
	KindReversal       MovementKind = "REVERSAL"
	KindOrderDeduction MovementKind = "ORDER_DEDUCTION"
)

// MinReasonLength is the minimum trimmed length of a movement reason.
const MinReasonLength = 3

// Valid reports whether k is a known kind.
func (k MovementKind) Valid() bool {
	switch k {
	case KindEntry, KindExit, KindAdjustment, KindReversal, KindOrderDeduction:
		return true
	}
	return false
}

// Sign is +1 for kinds that add stock, -1 for kinds that remove it and
// 0 for ADJUSTMENT, whose direction comes from the new quantity.
func (k MovementKind) Sign() int {
	switch k {
	case KindEntry, KindReversal:
		return 1
	case KindExit, KindOrderDeduction:
		return -1
	}
	return 0
}

// RequiresOrder reports whether entries of this kind must reference a service order.
func (k MovementKind) RequiresOrder() bool {
	return k == KindOrderDeduction || k == KindReversal
}

// Movement is an immutable ledger entry. Fields are unexported so a Movement
// can only come from the constructors below or RestoreMovement, all of which
// enforce that QuantityAfter-QuantityBefore equals the kind's signed impact.
type Movement struct {
	id             id.ID
	tenantID       id.ID
	partID         id.ID
	serviceOrderID *id.ID
	userID         id.ID
	kind           MovementKind
	quantity       int
	quantityBefore int
	quantityAfter  int
	unitValue      types.Money
	totalValue     types.Money
	reason         string
	note           string
	occurredAt     time.Time
}

func (m Movement) ID() id.ID { return m.id }
func (m Movement) TenantID() id.ID { return m.tenantID }
func (m Movement) PartID() id.ID { return m.partID }
func (m Movement) ServiceOrderID() *id.ID { return m.serviceOrderID }
func (m Movement) UserID() id.ID { return m.userID }
func (m Movement) Kind() MovementKind { return m.kind }
func (m Movement) Quantity() int { return m.quantity }
func (m Movement) QuantityBefore() int { return m.quantityBefore }
func (m Movement) QuantityAfter() int { return m.quantityAfter }
func (m Movement) UnitValue() types.Money { return m.unitValue }
func (m Movement) TotalValue() types.Money { return m.totalValue }
func (m Movement) Reason() string { return m.reason }
func (m Movement) Note() string { return m.note }
func (m Movement) OccurredAt() time.Time { return m.occurredAt }
func (m Movement) SignedImpact() int { return m.quantityAfter - m.quantityBefore }

// MovementHeader carries the fields shared by every kind.
type MovementHeader struct {
	TenantID       id.ID
	PartID         id.ID
	ServiceOrderID *id.ID
	UserID         id.ID
	UnitValue      types.Money
	Reason         string
	Note           string
}

// NewEntry builds an ENTRY that adds qty to before.
func NewEntry(h MovementHeader, before, qty int) (Movement, error) {
	return newDirected(KindEntry, h, before, qty)
}

// NewExit builds an EXIT that removes qty from before.
// It fails with InsufficientStock when qty exceeds before.
func NewExit(h MovementHeader, before, qty int) (Movement, error) {
	return newDirected(KindExit, h, before, qty)
}

// NewOrderDeduction builds an ORDER_DEDUCTION; h must reference the order.
func NewOrderDeduction(h MovementHeader, before, qty int) (Movement, error) {
	return newDirected(KindOrderDeduction, h, before, qty)
}

// NewReversal builds a REVERSAL restoring qty; h must reference the order.
func NewReversal(h MovementHeader, before, qty int) (Movement, error) {
	return newDirected(KindReversal, h, before, qty)
}

// NewAdjustment builds an ADJUSTMENT that sets the quantity to newQty.
// A zero difference is rejected and the reason is mandatory.
func NewAdjustment(h MovementHeader, before, newQty int) (Movement, error) {
	if newQty < 0 {
		return Movement{}, apperror.NewInvalidMovement("adjusted quantity cannot be negative").
			WithDetail("new_quantity", newQty)
	}
	if newQty == before {
		return Movement{}, apperror.NewInvalidMovement("adjustment does not change the quantity").
			WithDetail("quantity", before)
	}
	diff := newQty - before
	if diff < 0 {
		diff = -diff
	}
	return build(KindAdjustment, h, diff, before, newQty)
}

func newDirected(kind MovementKind, h MovementHeader, before, qty int) (Movement, error) {
	if qty <= 0 {
		return Movement{}, apperror.NewInvalidMovement("quantity must be positive").
			WithDetail("quantity", qty)
	}
	after := before + kind.Sign()*qty
	if after < 0 {
		return Movement{}, apperror.NewInsufficientStock(h.PartID, qty, before)
	}
	return build(kind, h, qty, before, after)
}

func build(kind MovementKind, h MovementHeader, qty, before, after int) (Movement, error) {
	m := Movement{
		id:             id.New(),
		tenantID:       h.TenantID,
		partID:         h.PartID,
		serviceOrderID: h.ServiceOrderID,
		userID:         h.UserID,
		kind:           kind,
		quantity:       qty,
		quantityBefore: before,
		quantityAfter:  after,
		unitValue:      h.UnitValue,
		totalValue:     types.MulQty(h.UnitValue, qty),
		reason:         strings.TrimSpace(h.Reason),
		note:           strings.TrimSpace(h.Note),
		occurredAt:     time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return Movement{}, err
	}
	return m, nil
}

// Validate checks every ledger invariant. The engine calls it again right
// before the entry is persisted.
func (m Movement) Validate() error {
	if !m.kind.Valid() {
		return apperror.NewInvalidMovement(fmt.Sprintf("unknown movement kind %q", m.kind))
	}
	if id.IsNil(m.partID) {
		return apperror.NewInvalidMovement("part is required")
	}
	if id.IsNil(m.userID) {
		return apperror.NewInvalidMovement("acting user is required")
	}
	if m.kind.RequiresOrder() && (m.serviceOrderID == nil || id.IsNil(*m.serviceOrderID)) {
		return apperror.NewInvalidMovement(fmt.Sprintf("%s requires a service order reference", m.kind))
	}
	if m.quantity <= 0 {
		return apperror.NewInvalidMovement("quantity must be positive").WithDetail("quantity", m.quantity)
	}
	if m.unitValue.IsNegative() {
		return apperror.NewInvalidMovement("unit value cannot be negative").WithDetail("unit_value", m.unitValue.String())
	}
	if !types.HasMoneyScale(m.unitValue) {
		return apperror.NewInvalidMovement(fmt.Sprintf("unit value cannot have more than %d decimal places", types.MoneyPlaces)).
			WithDetail("unit_value", m.unitValue.String())
	}
	if m.quantityBefore < 0 || m.quantityAfter < 0 {
		return apperror.NewInvalidMovement("quantities cannot be negative")
	}
	if err := validateReason(m.kind, m.reason); err != nil {
		return err
	}

	impact := m.quantityAfter - m.quantityBefore
	if m.kind == KindAdjustment {
		if impact == 0 || abs(impact) != m.quantity {
			return apperror.NewInvalidMovement("adjustment quantity must equal the absolute change")
		}
		return nil
	}
	if impact != m.kind.Sign()*m.quantity {
		return apperror.NewInvalidMovement("quantity snapshot does not match movement kind").
			WithDetail("kind", string(m.kind)).
			WithDetail("before", m.quantityBefore).
			WithDetail("after", m.quantityAfter)
	}
	return nil
}

// validateReason: mandatory for ADJUSTMENT, otherwise checked only when present.
func validateReason(kind MovementKind, reason string) error {
	if reason == "" {
		if kind == KindAdjustment {
			return apperror.NewInvalidMovement("adjustment requires a reason").WithDetail("field", "reason")
		}
		return nil
	}
	if utf8.RuneCountInString(reason) < MinReasonLength {
		return apperror.NewInvalidMovement(fmt.Sprintf("reason must have at least %d characters", MinReasonLength)).
			WithDetail("field", "reason")
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MovementRecord is the storage shape of a Movement.
type MovementRecord struct {
	ID             id.ID        `db:"id"`
	TenantID       id.ID        `db:"tenant_id"`
	PartID         id.ID        `db:"part_id"`
	ServiceOrderID *id.ID       `db:"service_order_id"`
	UserID         id.ID        `db:"user_id"`
	Kind           MovementKind `db:"kind"`
	Quantity       int          `db:"quantity"`
	QuantityBefore int          `db:"quantity_before"`
	QuantityAfter  int          `db:"quantity_after"`
	UnitValue      types.Money  `db:"unit_value"`
	TotalValue     types.Money  `db:"total_value"`
	Reason         string       `db:"reason"`
	Note           string       `db:"note"`
	OccurredAt     time.Time    `db:"occurred_at"`
}

// Record returns the storage shape of m.
func (m Movement) Record() MovementRecord {
	return MovementRecord{
		ID:             m.id,
		TenantID:       m.tenantID,
		PartID:         m.partID,
		ServiceOrderID: m.serviceOrderID,
		UserID:         m.userID,
		Kind:           m.kind,
		Quantity:       m.quantity,
		QuantityBefore: m.quantityBefore,
		QuantityAfter:  m.quantityAfter,
		UnitValue:      m.unitValue,
		TotalValue:     m.totalValue,
		Reason:         m.reason,
		Note:           m.note,
		OccurredAt:     m.occurredAt,
	}
}

// RestoreMovement rebuilds a Movement read from storage, re-checking its invariants.
func RestoreMovement(r MovementRecord) (Movement, error) {
	m := Movement{
		id:             r.ID,
		tenantID:       r.TenantID,
		partID:         r.PartID,
		serviceOrderID: r.ServiceOrderID,
		userID:         r.UserID,
		kind:           r.Kind,
		quantity:       r.Quantity,
		quantityBefore: r.QuantityBefore,
		quantityAfter:  r.QuantityAfter,
		unitValue:      r.UnitValue,
		totalValue:     r.TotalValue,
		reason:         r.Reason,
		note:           r.Note,
		occurredAt:     r.OccurredAt,
	}
	if err := m.Validate(); err != nil {
		return Movement{}, fmt.Errorf("restore movement %s: %w", r.ID, err)
	}
	return m, nil
}
