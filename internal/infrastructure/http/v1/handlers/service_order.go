package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/id"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/http/v1/dto"
)

// ServiceOrderHandler serves service orders: editing, lifecycle transitions
// and the history and stock movements they produced.
type ServiceOrderHandler struct {
	*BaseHandler
	orders *serviceorder.Service
	stock  *inventory.Service
}

// NewServiceOrderHandler creates a new service order handler.
func NewServiceOrderHandler(base *BaseHandler, orders *serviceorder.Service, stock *inventory.Service) *ServiceOrderHandler {
	return &ServiceOrderHandler{BaseHandler: base, orders: orders, stock: stock}
}

// RegisterRoutes mounts the service order endpoints on rg.
func (h *ServiceOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	rg.GET("/:id/movements", h.Movements)

	rg.PATCH("/:id", h.UpdateDetails)
	rg.POST("/:id/lines", h.AddLine)
	rg.PUT("/:id/lines/:lineId", h.UpdateLine)
	rg.DELETE("/:id/lines/:lineId", h.RemoveLine)
	rg.PUT("/:id/labor", h.SetLabor)
	rg.PUT("/:id/discount", h.SetDiscount)

	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/start", h.transition(h.orders.Start))
	rg.POST("/:id/await-part", h.AwaitPart)
	rg.POST("/:id/resume", h.transition(h.orders.Resume))
	rg.POST("/:id/complete", h.transition(h.orders.Complete))
	rg.POST("/:id/deliver", h.transition(h.orders.Deliver))
	rg.POST("/:id/cancel", h.Cancel)
}

// Create handles POST /service-orders
func (h *ServiceOrderHandler) Create(c *gin.Context) {
	var req dto.CreateServiceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	order, err := h.orders.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, dto.FromServiceOrder(order))
}

// Get handles GET /service-orders/:id
func (h *ServiceOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), orderID)
	h.respond(c, order, err)
}

// History handles GET /service-orders/:id/history
func (h *ServiceOrderHandler) History(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.orders.History(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[dto.HistoryEntryResponse]{Items: dto.FromHistory(entries)})
}

// Movements handles GET /service-orders/:id/movements
func (h *ServiceOrderHandler) Movements(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.orders.Get(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}
	mvs, err := h.stock.MovementsByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[dto.MovementResponse]{Items: dto.FromMovements(mvs)})
}

// UpdateDetails handles PATCH /service-orders/:id
func (h *ServiceOrderHandler) UpdateDetails(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.DetailsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	details, err := req.ToDetails()
	if err != nil {
		h.Error(c, err)
		return
	}
	order, err := h.orders.UpdateDetails(c.Request.Context(), orderID, req.Revision, details)
	h.respond(c, order, err)
}

// AddLine handles POST /service-orders/:id/lines
func (h *ServiceOrderHandler) AddLine(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.LineItemEditRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	order, err := h.orders.AddLineItem(c.Request.Context(), orderID, req.Revision, in)
	h.respond(c, order, err)
}

// UpdateLine handles PUT /service-orders/:id/lines/:lineId
func (h *ServiceOrderHandler) UpdateLine(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}
	var req dto.LineItemEditRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	order, err := h.orders.UpdateLineItem(c.Request.Context(), orderID, req.Revision, lineID, in)
	h.respond(c, order, err)
}

// RemoveLine handles DELETE /service-orders/:id/lines/:lineId?revision=n
func (h *ServiceOrderHandler) RemoveLine(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}
	var q struct {
		Revision int `form:"revision" binding:"min=0"`
	}
	if !h.BindQuery(c, &q) {
		return
	}
	order, err := h.orders.RemoveLineItem(c.Request.Context(), orderID, q.Revision, lineID)
	h.respond(c, order, err)
}

// SetLabor handles PUT /service-orders/:id/labor
func (h *ServiceOrderHandler) SetLabor(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.LaborRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.SetLaborValue(c.Request.Context(), orderID, req.Revision, req.LaborValue)
	h.respond(c, order, err)
}

// SetDiscount handles PUT /service-orders/:id/discount
func (h *ServiceOrderHandler) SetDiscount(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.DiscountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.SetDiscount(c.Request.Context(), orderID, req.Revision, req.Percentage, req.Value)
	h.respond(c, order, err)
}

// Approve handles POST /service-orders/:id/approve
func (h *ServiceOrderHandler) Approve(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ApproveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.Approve(c.Request.Context(), orderID, req.ClientApproved)
	h.respond(c, order, err)
}

// AwaitPart handles POST /service-orders/:id/await-part
func (h *ServiceOrderHandler) AwaitPart(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AwaitPartRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.AwaitPart(c.Request.Context(), orderID, req.Description)
	h.respond(c, order, err)
}

// Cancel handles POST /service-orders/:id/cancel
func (h *ServiceOrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), orderID, req.Reason)
	h.respond(c, order, err)
}

// transition adapts a body-less lifecycle operation to a handler.
func (h *ServiceOrderHandler) transition(op func(context.Context, id.ID) (*serviceorder.ServiceOrder, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := h.ParseID(c, "id")
		if !ok {
			return
		}
		order, err := op(c.Request.Context(), orderID)
		h.respond(c, order, err)
	}
}

func (h *ServiceOrderHandler) respond(c *gin.Context, order *serviceorder.ServiceOrder, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromServiceOrder(order))
}
