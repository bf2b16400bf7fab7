package serviceorder

import (
	"fmt"
	"strings"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

// LineKind distinguishes part lines from labor lines.
type LineKind string

const (
	LinePart  LineKind = "PART"
	LineLabor LineKind = "LABOR"
)

// Origin tells where a part line is sourced from. Only STOCK lines reference
// a catalog part and move inventory.
type Origin string

const (
	OriginStock          Origin = "STOCK"
	OriginAdHoc          Origin = "AD_HOC"
	OriginClientSupplied Origin = "CLIENT_SUPPLIED"
)

// LineItem is owned by exactly one order and holds no reference back to it.
type LineItem struct {
	ID          id.ID       `db:"id" json:"id"`
	Kind        LineKind    `db:"kind" json:"kind"`
	Origin      Origin      `db:"origin" json:"origin,omitempty"`
	PartID      *id.ID      `db:"part_id" json:"partId,omitempty"`
	Description string      `db:"description" json:"description"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitValue   types.Money `db:"unit_value" json:"unitValue"`
	Discount    types.Money `db:"discount" json:"discount"`
	Total       types.Money `db:"total" json:"total"`
}

// LineInput carries caller-supplied line fields.
type LineInput struct {
	Kind        LineKind
	Origin      Origin
	PartID      *id.ID
	Description string
	Quantity    int
	UnitValue   types.Money
	Discount    types.Money
}

// NewLineItem validates in and computes the line total.
func NewLineItem(in LineInput) (LineItem, error) {
	item := LineItem{ID: id.New()}
	if err := item.assign(in); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

func (l *LineItem) assign(in LineInput) error {
	next := LineItem{
		ID:          l.ID,
		Kind:        in.Kind,
		Origin:      in.Origin,
		PartID:      in.PartID,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		UnitValue:   in.UnitValue,
		Discount:    in.Discount,
	}
	if next.Kind == LineLabor {
		next.Origin = ""
		next.PartID = nil
	}
	if next.PartID != nil && id.IsNil(*next.PartID) {
		next.PartID = nil
	}
	next.Total = next.computeTotal()
	if err := next.Validate(); err != nil {
		return err
	}
	*l = next
	return nil
}

// Subtotal is quantity × unit value before the line discount.
func (l LineItem) Subtotal() types.Money {
	return types.MulQty(l.UnitValue, l.Quantity)
}

func (l LineItem) computeTotal() types.Money {
	return types.FloorZero(types.RoundMoney(l.Subtotal().Sub(l.Discount)))
}

// AffectsStock reports whether the line draws from the shop's own stock.
func (l LineItem) AffectsStock() bool {
	return l.Kind == LinePart && l.Origin == OriginStock
}

// Validate checks the line on its own, independent of the owning order.
func (l LineItem) Validate() error {
	switch l.Kind {
	case LinePart:
		switch l.Origin {
		case OriginStock:
			if l.PartID == nil {
				return apperror.NewValidation("stock line requires a part").WithDetail("field", "partId")
			}
		case OriginAdHoc, OriginClientSupplied:
			if l.PartID != nil {
				return apperror.NewValidation("only stock lines may reference a part").WithDetail("field", "partId")
			}
		default:
			return apperror.NewValidation("unknown part origin").WithDetail("origin", string(l.Origin))
		}
	case LineLabor:
	default:
		return apperror.NewValidation("unknown line kind").WithDetail("kind", string(l.Kind))
	}

	if l.Description == "" {
		return apperror.NewValidation("line description is required").WithDetail("field", "description")
	}
	if l.Quantity < 1 {
		return apperror.NewValidation("line quantity must be at least 1").WithDetail("field", "quantity")
	}
	if l.UnitValue.IsNegative() {
		return apperror.NewValidation("line unit value cannot be negative").WithDetail("field", "unitValue")
	}
	if !types.HasMoneyScale(l.UnitValue) {
		return moneyScaleError("unitValue")
	}
	if l.Discount.IsNegative() {
		return apperror.NewValidation("line discount cannot be negative").WithDetail("field", "discount")
	}
	if !types.HasMoneyScale(l.Discount) {
		return moneyScaleError("discount")
	}
	if l.Discount.GreaterThan(l.Subtotal()) {
		return apperror.NewValidation("line discount exceeds line subtotal").
			WithDetail("field", "discount").
			WithDetail("subtotal", l.Subtotal().StringFixed(types.MoneyPlaces))
	}
	return nil
}

func moneyScaleError(field string) error {
	return apperror.NewValidation(fmt.Sprintf("%s cannot have more than %d decimal places", field, types.MoneyPlaces)).
		WithDetail("field", field)
}
