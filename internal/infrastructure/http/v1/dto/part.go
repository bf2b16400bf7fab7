package dto

import (
	"time"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
	"oficina/internal/domain/inventory"
)

// --- Requests ---

// CreatePartRequest registers a catalog part with optional opening stock.
type CreatePartRequest struct {
	Code            string      `json:"code" binding:"required,max=50"`
	Description     string      `json:"description" binding:"required,max=500"`
	MinimumQuantity int         `json:"minimumQuantity" binding:"min=0"`
	UnitCost        types.Money `json:"unitCost"`
	SalePrice       types.Money `json:"salePrice"`
	InitialQuantity int         `json:"initialQuantity" binding:"min=0"`
}

// ToInput converts the request to a catalog input.
func (r CreatePartRequest) ToInput(userID id.ID) inventory.CreatePartInput {
	return inventory.CreatePartInput{
		Code:            r.Code,
		Description:     r.Description,
		MinimumQuantity: r.MinimumQuantity,
		UnitCost:        r.UnitCost,
		SalePrice:       r.SalePrice,
		InitialQuantity: r.InitialQuantity,
		UserID:          userID,
	}
}

// UpdatePartRequest edits descriptive fields. Quantity is never editable here.
type UpdatePartRequest struct {
	RevisionRequest
	Description     *string      `json:"description,omitempty"`
	MinimumQuantity *int         `json:"minimumQuantity,omitempty" binding:"omitempty,min=0"`
	UnitCost        *types.Money `json:"unitCost,omitempty"`
	SalePrice       *types.Money `json:"salePrice,omitempty"`
}

// ToChanges converts the request to catalog changes.
func (r UpdatePartRequest) ToChanges() inventory.PartChanges {
	return inventory.PartChanges{
		Description:     r.Description,
		MinimumQuantity: r.MinimumQuantity,
		UnitCost:        r.UnitCost,
		SalePrice:       r.SalePrice,
	}
}

// MovementRequest is the body of entry and exit endpoints.
type MovementRequest struct {
	Quantity  int         `json:"quantity" binding:"required,min=1"`
	UnitValue types.Money `json:"unitValue"`
	Reason    string      `json:"reason"`
	Note      string      `json:"note"`
}

// AdjustmentRequest sets the counted quantity.
type AdjustmentRequest struct {
	NewQuantity int         `json:"newQuantity" binding:"min=0"`
	UnitValue   types.Money `json:"unitValue"`
	Reason      string      `json:"reason" binding:"required"`
	Note        string      `json:"note"`
}

// MovementQuery filters the ledger of one part.
type MovementQuery struct {
	Kinds  []string   `form:"kind"`
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a repository filter.
func (q MovementQuery) ToFilter() (inventory.MovementFilter, error) {
	f := inventory.DefaultMovementFilter()
	for _, k := range q.Kinds {
		kind := inventory.MovementKind(k)
		if !kind.Valid() {
			return f, apperror.NewValidation("unknown movement kind").WithDetail("kind", k)
		}
		f.Kinds = append(f.Kinds, kind)
	}
	f.From, f.To = q.From, q.To
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	return f, nil
}

// --- Responses ---

// PartResponse represents a part in API responses.
type PartResponse struct {
	ID              string      `json:"id"`
	Code            string      `json:"code"`
	Description     string      `json:"description"`
	Quantity        int         `json:"quantity"`
	MinimumQuantity int         `json:"minimumQuantity"`
	UnitCost        types.Money `json:"unitCost"`
	SalePrice       types.Money `json:"salePrice"`
	Active          bool        `json:"active"`
	LowStock        bool        `json:"lowStock"`
	Revision        int         `json:"revision"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// FromPart converts entity to response DTO.
func FromPart(p *inventory.Part) PartResponse {
	return PartResponse{
		ID:              p.ID.String(),
		Code:            p.Code,
		Description:     p.Description,
		Quantity:        p.Quantity,
		MinimumQuantity: p.MinimumQuantity,
		UnitCost:        p.UnitCost,
		SalePrice:       p.SalePrice,
		Active:          p.Active,
		LowStock:        p.IsLowStock(),
		Revision:        p.Revision,
		UpdatedAt:       p.UpdatedAt,
	}
}

// QuantityResponse is returned by the current quantity endpoint.
type QuantityResponse struct {
	PartID   string `json:"partId"`
	Quantity int    `json:"quantity"`
}

// MovementResponse represents a ledger entry in API responses.
type MovementResponse struct {
	ID             string      `json:"id"`
	PartID         string      `json:"partId"`
	ServiceOrderID *string     `json:"serviceOrderId,omitempty"`
	UserID         string      `json:"userId"`
	Kind           string      `json:"kind"`
	Quantity       int         `json:"quantity"`
	QuantityBefore int         `json:"quantityBefore"`
	QuantityAfter  int         `json:"quantityAfter"`
	UnitValue      types.Money `json:"unitValue"`
	TotalValue     types.Money `json:"totalValue"`
	Reason         string      `json:"reason,omitempty"`
	Note           string      `json:"note,omitempty"`
	OccurredAt     time.Time   `json:"occurredAt"`
}

// FromMovement converts entity to response DTO.
func FromMovement(m inventory.Movement) MovementResponse {
	resp := MovementResponse{
		ID:             m.ID().String(),
		PartID:         m.PartID().String(),
		UserID:         m.UserID().String(),
		Kind:           string(m.Kind()),
		Quantity:       m.Quantity(),
		QuantityBefore: m.QuantityBefore(),
		QuantityAfter:  m.QuantityAfter(),
		UnitValue:      m.UnitValue(),
		TotalValue:     m.TotalValue(),
		Reason:         m.Reason(),
		Note:           m.Note(),
		OccurredAt:     m.OccurredAt(),
	}
	if orderID := m.ServiceOrderID(); orderID != nil {
		s := orderID.String()
		resp.ServiceOrderID = &s
	}
	return resp
}

// FromMovements converts a slice of entries.
func FromMovements(mvs []inventory.Movement) []MovementResponse {
	out := make([]MovementResponse, len(mvs))
	for i, m := range mvs {
		out[i] = FromMovement(m)
	}
	return out
}

// AuditChangeResponse is one catalog change of a part.
type AuditChangeResponse struct {
	Action  string         `json:"action"`
	UserID  *string        `json:"userId,omitempty"`
	Changes map[string]any `json:"changes"`
	At      time.Time      `json:"at"`
}

// FromAuditChanges converts audit records to response DTOs.
func FromAuditChanges(changes []inventory.AuditChange) []AuditChangeResponse {
	out := make([]AuditChangeResponse, len(changes))
	for i, ch := range changes {
		out[i] = AuditChangeResponse{Action: ch.Action, Changes: ch.Changes, At: ch.At}
		if ch.UserID != nil && !id.IsNil(*ch.UserID) {
			s := ch.UserID.String()
			out[i].UserID = &s
		}
	}
	return out
}
