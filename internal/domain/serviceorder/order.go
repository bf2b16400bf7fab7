// Package serviceorder owns the service order aggregate: its line items,
// lifecycle state machine, derived financial totals and status history.
package serviceorder

import (
	"context"
	"strings"
	"time"

	"oficina/internal/core/apperror"
	"oficina/internal/core/entity"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

var hundred = types.MustMoney("100")

// ServiceOrder is mutated only through its methods. Derived monetary fields
// are recomputed by Recalculate and never set directly.
type ServiceOrder struct {
	entity.Base

	Number       int64  `db:"number" json:"number"`
	Status       Status `db:"status" json:"status"`
	VehicleID    id.ID  `db:"vehicle_id" json:"vehicleId"`
	TechnicianID *id.ID `db:"technician_id" json:"technicianId,omitempty"`

	OpenedAt    time.Time  `db:"opened_at" json:"openedAt"`
	PredictedAt *time.Time `db:"predicted_at" json:"predictedAt,omitempty"`
	FinishedAt  *time.Time `db:"finished_at" json:"finishedAt,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`

	ProblemDescription string `db:"problem_description" json:"problemDescription"`
	Diagnosis          string `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes              string `db:"notes" json:"notes,omitempty"`

	LaborValue         types.Money `db:"labor_value" json:"laborValue"`
	PartsValue         types.Money `db:"parts_value" json:"partsValue"`
	TotalValue         types.Money `db:"total_value" json:"totalValue"`
	DiscountPercentage types.Money `db:"discount_percentage" json:"discountPercentage"`
	DiscountValue      types.Money `db:"discount_value" json:"discountValue"`
	DiscountTotal      types.Money `db:"discount_total" json:"discountTotal"`
	FinalValue         types.Money `db:"final_value" json:"finalValue"`

	ClientApproved bool `db:"client_approved" json:"clientApproved"`

	LineItems []LineItem `db:"-" json:"lineItems"`

	dirty bool
}

// Transition is one applied status change. From is empty on creation.
type Transition struct {
	From Status
	To   Status
	Note string
}

// NewInput carries the fields of a new order.
type NewInput struct {
	VehicleID          id.ID
	TechnicianID       *id.ID
	ProblemDescription string
	PredictedAt        *time.Time
	LaborValue         types.Money
	DiscountPercentage types.Money
	DiscountValue      types.Money
	Lines              []LineInput
}

// New creates an order in QUOTE. The returned Transition records creation.
func New(tenantID id.ID, number int64, in NewInput) (*ServiceOrder, Transition, error) {
	o := &ServiceOrder{
		Base:               entity.NewBase(tenantID),
		Number:             number,
		Status:             StatusQuote,
		VehicleID:          in.VehicleID,
		TechnicianID:       in.TechnicianID,
		OpenedAt:           time.Now().UTC(),
		PredictedAt:        in.PredictedAt,
		ProblemDescription: strings.TrimSpace(in.ProblemDescription),
		LaborValue:         in.LaborValue,
		DiscountPercentage: in.DiscountPercentage,
		DiscountValue:      in.DiscountValue,
		LineItems:          make([]LineItem, 0, len(in.Lines)),
	}
	for i, li := range in.Lines {
		item, err := NewLineItem(li)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("line", i)
			}
			return nil, Transition{}, err
		}
		o.LineItems = append(o.LineItems, item)
	}
	o.Recalculate()
	if err := o.Validate(context.Background()); err != nil {
		return nil, Transition{}, err
	}
	return o, Transition{To: StatusQuote}, nil
}

// --- State machine ---

// TransitionTo applies a table transition. A transition to the current
// status returns nil without error.
func (o *ServiceOrder) TransitionTo(to Status, note string) (*Transition, error) {
	if !to.Valid() {
		return nil, apperror.NewValidation("unknown status").WithDetail("status", string(to))
	}
	if o.Status == to {
		return nil, nil
	}
	if !CanTransition(o.Status, to) {
		return nil, apperror.NewInvalidStateTransition(string(o.Status), string(to))
	}
	t := &Transition{From: o.Status, To: to, Note: strings.TrimSpace(note)}
	o.Status = to
	o.dirty = true
	return t, nil
}

// Approve records the client decision. Approval moves QUOTE to APPROVED;
// a refusal only stores the flag so the caller can cancel.
func (o *ServiceOrder) Approve(clientApproved bool) ([]Transition, error) {
	if o.Status == StatusApproved && clientApproved {
		return nil, nil
	}
	if o.Status != StatusQuote {
		return nil, apperror.NewInvalidStateTransition(string(o.Status), string(StatusApproved))
	}
	if o.ClientApproved != clientApproved {
		o.ClientApproved = clientApproved
		o.dirty = true
	}
	if !clientApproved {
		return nil, nil
	}
	return o.apply(StatusApproved, "client approved")
}

// Start begins work on an approved order.
func (o *ServiceOrder) Start() ([]Transition, error) {
	if o.Status == StatusInProgress {
		return nil, nil
	}
	if o.Status != StatusApproved {
		return nil, apperror.NewInvalidStateTransition(string(o.Status), string(StatusInProgress))
	}
	if !o.ClientApproved {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "client approval is required to start work")
	}
	return o.apply(StatusInProgress, "")
}

// AwaitPart pauses work; description is kept as the history note.
func (o *ServiceOrder) AwaitPart(description string) ([]Transition, error) {
	return o.apply(StatusAwaitingPart, description)
}

// Resume continues work after a part arrived.
func (o *ServiceOrder) Resume() ([]Transition, error) {
	if o.Status == StatusInProgress {
		return nil, nil
	}
	if o.Status != StatusAwaitingPart {
		return nil, apperror.NewInvalidStateTransition(string(o.Status), string(StatusInProgress))
	}
	return o.apply(StatusInProgress, "part received")
}

// Complete finishes work and stamps FinishedAt. From AWAITING_PART the order
// passes through IN_PROGRESS, yielding two transitions.
func (o *ServiceOrder) Complete() ([]Transition, error) {
	if o.Status == StatusCompleted {
		return nil, nil
	}
	var out []Transition
	if o.Status == StatusAwaitingPart {
		resumed, err := o.apply(StatusInProgress, "resumed on completion")
		if err != nil {
			return nil, err
		}
		out = append(out, resumed...)
	}
	completed, err := o.apply(StatusCompleted, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	o.FinishedAt = &now
	return append(out, completed...), nil
}

// Deliver hands the vehicle back and stamps DeliveredAt.
func (o *ServiceOrder) Deliver() ([]Transition, error) {
	if o.Status == StatusDelivered {
		return nil, nil
	}
	ts, err := o.apply(StatusDelivered, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	o.DeliveredAt = &now
	return ts, nil
}

// Cancel voids the order and appends reason to Notes.
func (o *ServiceOrder) Cancel(reason string) ([]Transition, error) {
	if o.Status == StatusCancelled {
		return nil, nil
	}
	reason = strings.TrimSpace(reason)
	ts, err := o.apply(StatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		if o.Notes == "" {
			o.Notes = "Cancelled: " + reason
		} else {
			o.Notes += "\nCancelled: " + reason
		}
	}
	return ts, nil
}

func (o *ServiceOrder) apply(to Status, note string) ([]Transition, error) {
	t, err := o.TransitionTo(to, note)
	if err != nil || t == nil {
		return nil, err
	}
	return []Transition{*t}, nil
}

// --- Editing ---

func (o *ServiceOrder) ensureEditable() error {
	if !o.Status.Editable() {
		return apperror.NewOrderLocked(string(o.Status))
	}
	return nil
}

// AddLineItem appends a validated line and recomputes totals.
func (o *ServiceOrder) AddLineItem(in LineInput) (LineItem, error) {
	if err := o.ensureEditable(); err != nil {
		return LineItem{}, err
	}
	item, err := NewLineItem(in)
	if err != nil {
		return LineItem{}, err
	}
	o.LineItems = append(o.LineItems, item)
	o.changed()
	return item, nil
}

// UpdateLineItem replaces the fields of an existing line, keeping its id.
func (o *ServiceOrder) UpdateLineItem(itemID id.ID, in LineInput) (LineItem, error) {
	if err := o.ensureEditable(); err != nil {
		return LineItem{}, err
	}
	idx := o.lineIndex(itemID)
	if idx < 0 {
		return LineItem{}, apperror.NewNotFound("line item", itemID)
	}
	if err := o.LineItems[idx].assign(in); err != nil {
		return LineItem{}, err
	}
	o.changed()
	return o.LineItems[idx], nil
}

// RemoveLineItem deletes a line.
func (o *ServiceOrder) RemoveLineItem(itemID id.ID) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	idx := o.lineIndex(itemID)
	if idx < 0 {
		return apperror.NewNotFound("line item", itemID)
	}
	o.LineItems = append(o.LineItems[:idx], o.LineItems[idx+1:]...)
	o.changed()
	return nil
}

// SetLaborValue sets the labor charge.
func (o *ServiceOrder) SetLaborValue(v types.Money) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	if err := validateLabor(v); err != nil {
		return err
	}
	o.LaborValue = v
	o.changed()
	return nil
}

// SetDiscount sets the percentage and absolute order discounts.
func (o *ServiceOrder) SetDiscount(percentage, absolute types.Money) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	if err := validateDiscount(percentage, absolute); err != nil {
		return err
	}
	o.DiscountPercentage = percentage
	o.DiscountValue = absolute
	o.changed()
	return nil
}

// Details lists editable descriptive fields; nil fields are left unchanged.
type Details struct {
	TechnicianID *id.ID
	PredictedAt  *time.Time
	Diagnosis    *string
	Notes        *string
}

// UpdateDetails changes descriptive fields.
func (o *ServiceOrder) UpdateDetails(d Details) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	if d.TechnicianID != nil {
		o.TechnicianID = id.Ptr(*d.TechnicianID)
	}
	if d.PredictedAt != nil {
		at := d.PredictedAt.UTC()
		o.PredictedAt = &at
	}
	if d.Diagnosis != nil {
		o.Diagnosis = strings.TrimSpace(*d.Diagnosis)
	}
	if d.Notes != nil {
		o.Notes = strings.TrimSpace(*d.Notes)
	}
	o.dirty = true
	return nil
}

func (o *ServiceOrder) lineIndex(itemID id.ID) int {
	for i := range o.LineItems {
		if o.LineItems[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (o *ServiceOrder) changed() {
	o.Recalculate()
	o.dirty = true
}

// Dirty reports whether the order changed since it was loaded.
func (o *ServiceOrder) Dirty() bool { return o.dirty }

// MarkClean resets the change flag after loading or saving.
func (o *ServiceOrder) MarkClean() { o.dirty = false }

// StockLines returns the lines that move inventory, in order.
func (o *ServiceOrder) StockLines() []LineItem {
	var out []LineItem
	for _, li := range o.LineItems {
		if li.AffectsStock() {
			out = append(out, li)
		}
	}
	return out
}

// --- Totals ---

// Recalculate derives every monetary total from the line items, labor value
// and discount fields. Calling it twice yields the same values.
func (o *ServiceOrder) Recalculate() {
	parts := types.Zero()
	for i := range o.LineItems {
		o.LineItems[i].Total = o.LineItems[i].computeTotal()
		if o.LineItems[i].Kind == LinePart {
			parts = parts.Add(o.LineItems[i].Total)
		}
	}
	o.PartsValue = types.RoundMoney(parts)
	o.TotalValue = types.RoundMoney(o.LaborValue.Add(o.PartsValue))

	pct := types.RoundMoney(o.TotalValue.Mul(o.DiscountPercentage).Div(hundred))
	o.DiscountTotal = pct.Add(types.RoundMoney(o.DiscountValue))
	o.FinalValue = types.FloorZero(o.TotalValue.Sub(o.DiscountTotal))
}

// Validate implements entity.Validatable.
func (o *ServiceOrder) Validate(ctx context.Context) error {
	if !o.Status.Valid() {
		return apperror.NewValidation("unknown status").WithDetail("status", string(o.Status))
	}
	if id.IsNil(o.VehicleID) {
		return apperror.NewValidation("vehicle is required").WithDetail("field", "vehicleId")
	}
	if o.ProblemDescription == "" {
		return apperror.NewValidation("problem description is required").WithDetail("field", "problemDescription")
	}
	if err := validateLabor(o.LaborValue); err != nil {
		return err
	}
	if err := validateDiscount(o.DiscountPercentage, o.DiscountValue); err != nil {
		return err
	}
	for i, li := range o.LineItems {
		if err := li.Validate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("line", i)
			}
			return err
		}
	}
	return nil
}

func validateLabor(v types.Money) error {
	if v.IsNegative() {
		return apperror.NewValidation("labor value cannot be negative").WithDetail("field", "laborValue")
	}
	if !types.HasMoneyScale(v) {
		return moneyScaleError("laborValue")
	}
	return nil
}

func validateDiscount(percentage, absolute types.Money) error {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return apperror.NewValidation("discount percentage must be between 0 and 100").
			WithDetail("field", "discountPercentage")
	}
	if !types.HasMoneyScale(percentage) {
		return moneyScaleError("discountPercentage")
	}
	if absolute.IsNegative() {
		return apperror.NewValidation("discount value cannot be negative").WithDetail("field", "discountValue")
	}
	if !types.HasMoneyScale(absolute) {
		return moneyScaleError("discountValue")
	}
	return nil
}

var _ entity.Validatable = (*ServiceOrder)(nil)
