package dto

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/receipt"
)

// CreateReceiptRequest for creating goods receipts.
type CreateReceiptRequest struct {
	Location    LocationRefDTO       `json:"location" binding:"required"`
	SupplierRef string               `json:"supplierRef"`
	Date        *time.Time           `json:"date"`
	Lines       []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceiptLineRequest is one received lot.
type ReceiptLineRequest struct {
	ItemID      string         `json:"itemId" binding:"required"`
	BatchNo     string         `json:"batchNo" binding:"required"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	UOM         string         `json:"uom" binding:"required"`
	RatePerUnit types.Money    `json:"ratePerUnit"`
	MfgDate     *time.Time     `json:"mfgDate"`
	ExpiryDate  *time.Time     `json:"expiryDate"`
}

// ToEntity converts request to domain document.
func (r CreateReceiptRequest) ToEntity() (*receipt.GoodsReceipt, error) {
	loc, err := r.Location.ToRef()
	if err != nil {
		return nil, err
	}

	doc := receipt.NewGoodsReceipt(loc, r.SupplierRef)
	if r.Date != nil {
		doc.Date = *r.Date
	}

	for i, l := range r.Lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").
				WithDetail("lineNo", i+1)
		}
		line := doc.AddLine(itemID, l.BatchNo, l.Quantity, l.UOM, l.RatePerUnit)
		line.MfgDate = l.MfgDate
		line.ExpiryDate = l.ExpiryDate
	}
	return doc, nil
}

// ReceiptLineResponse is one received lot with its opened batch.
type ReceiptLineResponse struct {
	ID          string         `json:"id"`
	LineNo      int            `json:"lineNo"`
	ItemID      string         `json:"itemId"`
	BatchNo     string         `json:"batchNo"`
	Quantity    types.Quantity `json:"quantity"`
	UOM         string         `json:"uom"`
	RatePerUnit types.Money    `json:"ratePerUnit"`
	MfgDate     *time.Time     `json:"mfgDate,omitempty"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
	BatchID     *string        `json:"batchId,omitempty"`
}

// ReceiptResponse contains goods receipt fields.
type ReceiptResponse struct {
	ID          string                `json:"id"`
	Number      string                `json:"number"`
	Date        time.Time             `json:"date"`
	Location    LocationRefDTO        `json:"location"`
	SupplierRef string                `json:"supplierRef,omitempty"`
	Posted      bool                  `json:"posted"`
	Lines       []ReceiptLineResponse `json:"lines"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Version     int                   `json:"version"`
}

// FromGoodsReceipt creates ReceiptResponse from domain document.
func FromGoodsReceipt(doc *receipt.GoodsReceipt) *ReceiptResponse {
	resp := &ReceiptResponse{
		ID:          doc.ID.String(),
		Number:      doc.Number,
		Date:        doc.Date,
		Location:    FromLocationRef(doc.Location),
		SupplierRef: doc.SupplierRef,
		Posted:      doc.Posted,
		Lines:       make([]ReceiptLineResponse, len(doc.Lines)),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Version:     doc.Version,
	}
	for i, l := range doc.Lines {
		line := ReceiptLineResponse{
			ID:          l.ID.String(),
			LineNo:      l.LineNo,
			ItemID:      l.ItemID.String(),
			BatchNo:     l.BatchNo,
			Quantity:    l.Quantity,
			UOM:         l.UOM,
			RatePerUnit: l.RatePerUnit,
			MfgDate:     l.MfgDate,
			ExpiryDate:  l.ExpiryDate,
		}
		if l.BatchID != nil {
			s := l.BatchID.String()
			line.BatchID = &s
		}
		resp.Lines[i] = line
	}
	return resp
}
