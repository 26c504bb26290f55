package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for batches and the stock journal.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// ListBatches handles GET /stock/batches.
func (h *StockHandler) ListBatches(c *gin.Context) {
	filter := ledger.BatchFilter{
		ExcludeZero: c.Query("excludeZero") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 50),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	if itemID := c.Query("itemId"); itemID != "" {
		if parsed, err := id.Parse(itemID); err == nil {
			filter.ItemID = &parsed
		}
	}
	if locType := c.Query("locationType"); locType != "" {
		t := ledger.LocationType(locType)
		filter.LocationType = &t
	}
	if locID := c.Query("locationId"); locID != "" {
		if parsed, err := id.Parse(locID); err == nil {
			filter.LocationID = &parsed
		}
	}

	batches, err := h.service.Batches(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	responses := make([]*dto.BatchResponse, len(batches))
	for i, b := range batches {
		responses[i] = dto.FromBatch(b)
	}

	h.OK(c, dto.ListResponse{
		Items:  responses,
		Count:  len(responses),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetBatch handles GET /stock/batches/:id.
func (h *StockHandler) GetBatch(c *gin.Context) {
	batchID, ok := h.ParseID(c)
	if !ok {
		return
	}

	batch, err := h.service.BatchByID(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}

// BatchLedger handles GET /stock/batches/:id/ledger - the movement history
// of one batch, oldest first.
func (h *StockHandler) BatchLedger(c *gin.Context) {
	batchID, ok := h.ParseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	batch, err := h.service.BatchByID(ctx, batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	filter := ledger.EntryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if txnType := c.Query("type"); txnType != "" {
		t := ledger.TransactionType(txnType)
		filter.Type = &t
	}

	entries, err := h.service.EntriesByBatch(ctx, batch.ItemID, batchID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromEntries(entries),
		Count:  len(entries),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// TransactionEntries handles GET /stock/transactions/:id/entries - all
// journal entries posted under one transaction id.
func (h *StockHandler) TransactionEntries(c *gin.Context) {
	txnID, ok := h.ParseID(c)
	if !ok {
		return
	}

	entries, err := h.service.EntriesByTransaction(c.Request.Context(), txnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items: dto.FromEntries(entries),
		Count: len(entries),
	})
}

// RegisterRoutes registers stock query routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/batches", h.ListBatches)
	rg.GET("/batches/:id", h.GetBatch)
	rg.GET("/batches/:id/ledger", h.BatchLedger)
	rg.GET("/transactions/:id/entries", h.TransactionEntries)
}
