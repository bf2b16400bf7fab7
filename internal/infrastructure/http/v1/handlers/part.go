package handlers

import (
	"github.com/gin-gonic/gin"

	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/http/v1/dto"
)

// PartHandler serves the part catalog and manual stock movements.
type PartHandler struct {
	*BaseHandler
	catalog *inventory.Catalog
	stock   *inventory.Service
}

// NewPartHandler creates a new part handler.
func NewPartHandler(base *BaseHandler, catalog *inventory.Catalog, stock *inventory.Service) *PartHandler {
	return &PartHandler{BaseHandler: base, catalog: catalog, stock: stock}
}

// RegisterRoutes mounts the part endpoints on rg.
func (h *PartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/low-stock", h.LowStock)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/deactivate", h.Deactivate)
	rg.GET("/:id/quantity", h.Quantity)
	rg.GET("/:id/movements", h.Movements)
	rg.GET("/:id/audit", h.Audit)
	rg.POST("/:id/entries", h.Entry)
	rg.POST("/:id/exits", h.Exit)
	rg.POST("/:id/adjustments", h.Adjustment)
}

// Create handles POST /parts
func (h *PartHandler) Create(c *gin.Context) {
	var req dto.CreatePartRequest
	if !h.BindJSON(c, &req) {
		return
	}
	part, err := h.catalog.CreatePart(c.Request.Context(), req.ToInput(h.UserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, dto.FromPart(part))
}

// Get handles GET /parts/:id
func (h *PartHandler) Get(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	part, err := h.catalog.GetPart(c.Request.Context(), partID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPart(part))
}

// Update handles PATCH /parts/:id
func (h *PartHandler) Update(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePartRequest
	if !h.BindJSON(c, &req) {
		return
	}
	part, err := h.catalog.UpdatePart(c.Request.Context(), partID, req.Revision, req.ToChanges())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPart(part))
}

// Deactivate handles POST /parts/:id/deactivate
func (h *PartHandler) Deactivate(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.RevisionRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	part, err := h.catalog.DeactivatePart(c.Request.Context(), partID, req.Revision)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPart(part))
}

// LowStock handles GET /parts/low-stock
func (h *PartHandler) LowStock(c *gin.Context) {
	limit := 100
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit > 0 {
		limit = q.Limit
	}
	parts, err := h.catalog.ListLowStock(c.Request.Context(), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.PartResponse, len(parts))
	for i, p := range parts {
		items[i] = dto.FromPart(p)
	}
	h.OK(c, dto.ListResponse[dto.PartResponse]{Items: items, Limit: limit})
}

// Audit handles GET /parts/:id/audit
func (h *PartHandler) Audit(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if !h.BindQuery(c, &q) {
		return
	}
	changes, err := h.catalog.PartAudit(c.Request.Context(), partID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[dto.AuditChangeResponse]{Items: dto.FromAuditChanges(changes), Limit: q.Limit})
}

// Quantity handles GET /parts/:id/quantity
func (h *PartHandler) Quantity(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	qty, err := h.stock.CurrentQuantity(c.Request.Context(), partID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.QuantityResponse{PartID: partID.String(), Quantity: qty})
}

// Movements handles GET /parts/:id/movements
func (h *PartHandler) Movements(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	mvs, err := h.stock.MovementsByPart(c.Request.Context(), partID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse[dto.MovementResponse]{
		Items: dto.FromMovements(mvs), Limit: filter.Limit, Offset: filter.Offset,
	})
}

// Entry handles POST /parts/:id/entries
func (h *PartHandler) Entry(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mv, err := h.stock.RecordEntry(c.Request.Context(), inventory.EntryInput{
		PartID: partID, Quantity: req.Quantity, UnitValue: req.UnitValue,
		UserID: h.UserID(c), Reason: req.Reason, Note: req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, dto.FromMovement(*mv))
}

// Exit handles POST /parts/:id/exits
func (h *PartHandler) Exit(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mv, err := h.stock.RecordExit(c.Request.Context(), inventory.ExitInput{
		PartID: partID, Quantity: req.Quantity, UnitValue: req.UnitValue,
		UserID: h.UserID(c), Reason: req.Reason, Note: req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, dto.FromMovement(*mv))
}

// Adjustment handles POST /parts/:id/adjustments
func (h *PartHandler) Adjustment(c *gin.Context) {
	partID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mv, err := h.stock.RecordAdjustment(c.Request.Context(), inventory.AdjustmentInput{
		PartID: partID, NewQuantity: req.NewQuantity, UnitValue: req.UnitValue,
		UserID: h.UserID(c), Reason: req.Reason, Note: req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, dto.FromMovement(*mv))
}
