// Package inventory owns parts, the append-only stock ledger and the engine
// that applies movements to both under a per-part row lock.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"oficina/internal/core/apperror"
	"oficina/internal/core/entity"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

// Part is a stocked item. Quantity is written only by the engine in this
// package; catalog edits change descriptive and pricing fields.
type Part struct {
	entity.Base

	Code            string      `db:"code" json:"code"`
	Description     string      `db:"description" json:"description"`
	Quantity        int         `db:"quantity" json:"quantity"`
	MinimumQuantity int         `db:"minimum_quantity" json:"minimumQuantity"`
	UnitCost        types.Money `db:"unit_cost" json:"unitCost"`
	SalePrice       types.Money `db:"sale_price" json:"salePrice"`
	Active          bool        `db:"active" json:"active"`
}

// NewPart creates an active part with zero stock.
func NewPart(tenantID id.ID, code, description string, minimum int, unitCost, salePrice types.Money) *Part {
	return &Part{
		Base:            entity.NewBase(tenantID),
		Code:            strings.TrimSpace(code),
		Description:     strings.TrimSpace(description),
		MinimumQuantity: minimum,
		UnitCost:        unitCost,
		SalePrice:       salePrice,
		Active:          true,
	}
}

// Validate implements entity.Validatable.
func (p *Part) Validate(ctx context.Context) error {
	if p.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if len(p.Code) > 50 {
		return apperror.NewValidation("code must be at most 50 characters").WithDetail("field", "code")
	}
	if p.Description == "" {
		return apperror.NewValidation("description is required").WithDetail("field", "description")
	}
	if p.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}
	if p.MinimumQuantity < 0 {
		return apperror.NewValidation("minimum quantity cannot be negative").WithDetail("field", "minimumQuantity")
	}
	if p.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}
	if p.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").WithDetail("field", "salePrice")
	}
	for field, v := range map[string]types.Money{"unitCost": p.UnitCost, "salePrice": p.SalePrice} {
		if !types.HasMoneyScale(v) {
			return apperror.NewValidation(fmt.Sprintf("%s cannot have more than %d decimal places", field, types.MoneyPlaces)).
				WithDetail("field", field)
		}
	}
	return nil
}

// IsLowStock reports whether the part is at or below its minimum.
func (p *Part) IsLowStock() bool {
	return p.Quantity <= p.MinimumQuantity
}

// PartChanges lists catalog edits; nil fields are left unchanged.
type PartChanges struct {
	Description     *string
	MinimumQuantity *int
	UnitCost        *types.Money
	SalePrice       *types.Money
}

// Apply copies the non-nil changes onto p.
func (c PartChanges) Apply(p *Part) {
	if c.Description != nil {
		p.Description = strings.TrimSpace(*c.Description)
	}
	if c.MinimumQuantity != nil {
		p.MinimumQuantity = *c.MinimumQuantity
	}
	if c.UnitCost != nil {
		p.UnitCost = *c.UnitCost
	}
	if c.SalePrice != nil {
		p.SalePrice = *c.SalePrice
	}
}

var _ entity.Validatable = (*Part)(nil)
