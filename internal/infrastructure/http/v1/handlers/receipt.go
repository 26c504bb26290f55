package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/receipt"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReceiptHandler handles HTTP requests for goods receipt documents.
type ReceiptHandler struct {
	*BaseHandler
	service *receipt.Service
}

// NewReceiptHandler creates a new goods receipt handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service) *ReceiptHandler {
	return &ReceiptHandler{BaseHandler: base, service: service}
}

// Create handles POST /receipts.
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req dto.CreateReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromGoodsReceipt(doc))
}

// Get handles GET /receipts/:id.
func (h *ReceiptHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromGoodsReceipt(doc))
}

// List handles GET /receipts.
func (h *ReceiptHandler) List(c *gin.Context) {
	filter := receipt.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if posted := c.Query("posted"); posted != "" {
		val := posted == "true"
		filter.Posted = &val
	}
	if locID := c.Query("locationId"); locID != "" {
		if parsed, err := id.Parse(locID); err == nil {
			filter.LocationID = &parsed
		}
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	docs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	responses := make([]*dto.ReceiptResponse, len(docs))
	for i, doc := range docs {
		responses[i] = dto.FromGoodsReceipt(doc)
	}

	h.OK(c, dto.ListResponse{
		Items:  responses,
		Count:  len(responses),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Post handles POST /receipts/:id/post - opens one batch per line.
func (h *ReceiptHandler) Post(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.Post(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromGoodsReceipt(doc))
}

// RegisterRoutes registers goods receipt routes.
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/post", h.Post)
}
