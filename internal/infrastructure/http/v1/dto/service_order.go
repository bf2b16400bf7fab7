package dto

import (
	"time"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/types"
	"oficina/internal/domain/serviceorder"
)

// --- Requests ---

// LineItemRequest describes a part or labor line.
type LineItemRequest struct {
	Kind        string      `json:"kind" binding:"required,oneof=PART LABOR"`
	Origin      string      `json:"origin" binding:"omitempty,oneof=STOCK AD_HOC CLIENT_SUPPLIED"`
	PartID      *string     `json:"partId,omitempty"`
	Description string      `json:"description" binding:"required"`
	Quantity    int         `json:"quantity" binding:"required,min=1"`
	UnitValue   types.Money `json:"unitValue"`
	Discount    types.Money `json:"discount"`
}

// ToInput converts the request to a domain line input.
func (r LineItemRequest) ToInput() (serviceorder.LineInput, error) {
	partID, err := ParseOptionalID("partId", r.PartID)
	if err != nil {
		return serviceorder.LineInput{}, err
	}
	return serviceorder.LineInput{
		Kind:        serviceorder.LineKind(r.Kind),
		Origin:      serviceorder.Origin(r.Origin),
		PartID:      partID,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitValue:   r.UnitValue,
		Discount:    r.Discount,
	}, nil
}

// CreateServiceOrderRequest opens an order in QUOTE.
type CreateServiceOrderRequest struct {
	VehicleID          string            `json:"vehicleId" binding:"required,uuid"`
	TechnicianID       *string           `json:"technicianId,omitempty"`
	ProblemDescription string            `json:"problemDescription" binding:"required"`
	PredictedAt        *time.Time        `json:"predictedAt,omitempty"`
	LaborValue         types.Money       `json:"laborValue"`
	DiscountPercentage types.Money       `json:"discountPercentage"`
	DiscountValue      types.Money       `json:"discountValue"`
	Lines              []LineItemRequest `json:"lines" binding:"dive"`
}

// ToInput converts the request to a domain input.
func (r CreateServiceOrderRequest) ToInput() (serviceorder.NewInput, error) {
	vehicleID, err := id.Parse(r.VehicleID)
	if err != nil {
		return serviceorder.NewInput{}, apperror.NewValidation("invalid vehicleId")
	}
	technicianID, err := ParseOptionalID("technicianId", r.TechnicianID)
	if err != nil {
		return serviceorder.NewInput{}, err
	}
	in := serviceorder.NewInput{
		VehicleID:          vehicleID,
		TechnicianID:       technicianID,
		ProblemDescription: r.ProblemDescription,
		PredictedAt:        r.PredictedAt,
		LaborValue:         r.LaborValue,
		DiscountPercentage: r.DiscountPercentage,
		DiscountValue:      r.DiscountValue,
	}
	for _, l := range r.Lines {
		li, err := l.ToInput()
		if err != nil {
			return serviceorder.NewInput{}, err
		}
		in.Lines = append(in.Lines, li)
	}
	return in, nil
}

// LineItemEditRequest adds or replaces a line under a revision check.
type LineItemEditRequest struct {
	RevisionRequest
	LineItemRequest
}

// LaborRequest sets the labor value.
type LaborRequest struct {
	RevisionRequest
	LaborValue types.Money `json:"laborValue"`
}

// DiscountRequest sets both discount components.
type DiscountRequest struct {
	RevisionRequest
	Percentage types.Money `json:"percentage"`
	Value      types.Money `json:"value"`
}

// DetailsRequest edits descriptive fields; absent fields stay unchanged.
type DetailsRequest struct {
	RevisionRequest
	TechnicianID *string    `json:"technicianId,omitempty"`
	PredictedAt  *time.Time `json:"predictedAt,omitempty"`
	Diagnosis    *string    `json:"diagnosis,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// ToDetails converts the request to domain details.
func (r DetailsRequest) ToDetails() (serviceorder.Details, error) {
	technicianID, err := ParseOptionalID("technicianId", r.TechnicianID)
	if err != nil {
		return serviceorder.Details{}, err
	}
	return serviceorder.Details{
		TechnicianID: technicianID,
		PredictedAt:  r.PredictedAt,
		Diagnosis:    r.Diagnosis,
		Notes:        r.Notes,
	}, nil
}

// ApproveRequest records the client's decision.
type ApproveRequest struct {
	ClientApproved bool `json:"clientApproved"`
}

// AwaitPartRequest names the missing part.
type AwaitPartRequest struct {
	Description string `json:"description"`
}

// CancelRequest carries the cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// --- Responses ---

// LineItemResponse represents a line in API responses.
type LineItemResponse struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Origin      string      `json:"origin,omitempty"`
	PartID      *string     `json:"partId,omitempty"`
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	UnitValue   types.Money `json:"unitValue"`
	Discount    types.Money `json:"discount"`
	Total       types.Money `json:"total"`
}

// ServiceOrderResponse represents an order in API responses.
type ServiceOrderResponse struct {
	ID                 string             `json:"id"`
	Number             int64              `json:"number"`
	Status             string             `json:"status"`
	AllowedTargets     []string           `json:"allowedTargets"`
	VehicleID          string             `json:"vehicleId"`
	TechnicianID       *string            `json:"technicianId,omitempty"`
	OpenedAt           time.Time          `json:"openedAt"`
	PredictedAt        *time.Time         `json:"predictedAt,omitempty"`
	FinishedAt         *time.Time         `json:"finishedAt,omitempty"`
	DeliveredAt        *time.Time         `json:"deliveredAt,omitempty"`
	ProblemDescription string             `json:"problemDescription"`
	Diagnosis          string             `json:"diagnosis,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	LaborValue         types.Money        `json:"laborValue"`
	PartsValue         types.Money        `json:"partsValue"`
	TotalValue         types.Money        `json:"totalValue"`
	DiscountPercentage types.Money        `json:"discountPercentage"`
	DiscountValue      types.Money        `json:"discountValue"`
	DiscountTotal      types.Money        `json:"discountTotal"`
	FinalValue         types.Money        `json:"finalValue"`
	ClientApproved     bool               `json:"clientApproved"`
	LineItems          []LineItemResponse `json:"lineItems"`
	Revision           int                `json:"revision"`
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

// FromServiceOrder converts entity to response DTO.
func FromServiceOrder(o *serviceorder.ServiceOrder) ServiceOrderResponse {
	resp := ServiceOrderResponse{
		ID:                 o.ID.String(),
		Number:             o.Number,
		Status:             o.Status.String(),
		VehicleID:          o.VehicleID.String(),
		TechnicianID:       idString(o.TechnicianID),
		OpenedAt:           o.OpenedAt,
		PredictedAt:        o.PredictedAt,
		FinishedAt:         o.FinishedAt,
		DeliveredAt:        o.DeliveredAt,
		ProblemDescription: o.ProblemDescription,
		Diagnosis:          o.Diagnosis,
		Notes:              o.Notes,
		LaborValue:         o.LaborValue,
		PartsValue:         o.PartsValue,
		TotalValue:         o.TotalValue,
		DiscountPercentage: o.DiscountPercentage,
		DiscountValue:      o.DiscountValue,
		DiscountTotal:      o.DiscountTotal,
		FinalValue:         o.FinalValue,
		ClientApproved:     o.ClientApproved,
		LineItems:          make([]LineItemResponse, len(o.LineItems)),
		Revision:           o.Revision,
	}
	for _, s := range o.Status.AllowedTargets() {
		resp.AllowedTargets = append(resp.AllowedTargets, s.String())
	}
	for i, li := range o.LineItems {
		resp.LineItems[i] = LineItemResponse{
			ID:          li.ID.String(),
			Kind:        string(li.Kind),
			Origin:      string(li.Origin),
			PartID:      idString(li.PartID),
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitValue:   li.UnitValue,
			Discount:    li.Discount,
			Total:       li.Total,
		}
	}
	return resp
}

// HistoryEntryResponse represents a status change in API responses.
type HistoryEntryResponse struct {
	PreviousStatus *string   `json:"previousStatus,omitempty"`
	NewStatus      string    `json:"newStatus"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	Note           string    `json:"note,omitempty"`
	ChangedAt      time.Time `json:"changedAt"`
}

// FromHistory converts history entries to response DTOs.
func FromHistory(entries []serviceorder.HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			NewStatus: e.NewStatus.String(),
			UserID:    e.UserID.String(),
			UserName:  e.UserName,
			Note:      e.Note,
			ChangedAt: e.ChangedAt,
		}
		if e.PreviousStatus != nil {
			prev := e.PreviousStatus.String()
			out[i].PreviousStatus = &prev
		}
	}
	return out
}
