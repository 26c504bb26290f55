package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/domain/catalogs/item"
)

// CreateItemRequest for creating catalog items.
type CreateItemRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	BaseUOM  string `json:"baseUom" binding:"required"`
}

// ToEntity converts request to domain item.
func (r CreateItemRequest) ToEntity() *item.Item {
	return item.NewItem(r.Code, r.Name, r.Category, r.BaseUOM)
}

// AddConversionRequest registers a UOM conversion for an item.
type AddConversionRequest struct {
	FromUOM string          `json:"fromUom" binding:"required"`
	ToUOM   string          `json:"toUom" binding:"required"`
	Factor  decimal.Decimal `json:"factor" binding:"required"`
}

// ConversionResponse is one stored conversion record.
type ConversionResponse struct {
	ID      string          `json:"id"`
	FromUOM string          `json:"fromUom"`
	ToUOM   string          `json:"toUom"`
	Factor  decimal.Decimal `json:"factor"`
}

// ItemResponse contains item fields with conversions.
type ItemResponse struct {
	ID          string               `json:"id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Category    string               `json:"category,omitempty"`
	BaseUOM     string               `json:"baseUom"`
	Conversions []ConversionResponse `json:"conversions,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Version     int                  `json:"version"`
}

// FromItem creates ItemResponse from domain item.
func FromItem(it *item.Item) *ItemResponse {
	resp := &ItemResponse{
		ID:        it.ID.String(),
		Code:      it.Code,
		Name:      it.Name,
		Category:  it.Category,
		BaseUOM:   it.BaseUOM,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
		Version:   it.Version,
	}
	for _, c := range it.Conversions {
		resp.Conversions = append(resp.Conversions, ConversionResponse{
			ID:      c.ID.String(),
			FromUOM: c.FromUOM,
			ToUOM:   c.ToUOM,
			Factor:  c.Factor,
		})
	}
	return resp
}
