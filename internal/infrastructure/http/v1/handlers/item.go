package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles HTTP requests for the item catalog.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates a new item handler.
func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service}
}

// Create handles POST /items.
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromItem(it))
}

// Get handles GET /items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c)
	if !ok {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(it))
}

// List handles GET /items.
func (h *ItemHandler) List(c *gin.Context) {
	filter := item.ListFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	responses := make([]*dto.ItemResponse, len(items))
	for i, it := range items {
		responses[i] = dto.FromItem(it)
	}

	h.OK(c, dto.ListResponse{
		Items:  responses,
		Count:  len(responses),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// AddConversion handles POST /items/:id/conversions.
func (h *ItemHandler) AddConversion(c *gin.Context) {
	itemID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.AddConversionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	conv := item.UomConversion{Factor: req.Factor}
	if err := h.service.AddConversion(c.Request.Context(), itemID, req.FromUOM, req.ToUOM, conv); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ConversionResponse{
		ID:      conv.ID.String(),
		FromUOM: req.FromUOM,
		ToUOM:   req.ToUOM,
		Factor:  req.Factor,
	})
}

// ResolveConversion handles GET /items/:id/conversions/resolve?fromUom=L.
// Returns the factor from the given unit to the item's base unit.
func (h *ItemHandler) ResolveConversion(c *gin.Context) {
	itemID, ok := h.ParseID(c)
	if !ok {
		return
	}

	res, err := h.service.ResolveConversion(c.Request.Context(), itemID, c.Query("fromUom"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"factor":    res.Factor,
		"direction": string(res.Direction),
	})
}

// RegisterRoutes registers item catalog routes.
func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/conversions", h.AddConversion)
	rg.GET("/:id/conversions/resolve", h.ResolveConversion)
}
