// Package receipt provides the goods receipt document: incoming stock
// that opens new batches in the ledger.
package receipt

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// GoodsReceipt records stock received into a location. Posting opens one
// batch per line; the document id doubles as the ledger transaction id
// for the opening RECEIPT entries.
type GoodsReceipt struct {
	ID     id.ID  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`

	Date     time.Time          `db:"date" json:"date"`
	Location ledger.LocationRef `db:"-" json:"location"`

	// SupplierRef is the vendor's invoice or challan number
	SupplierRef string `db:"supplier_ref" json:"supplierRef,omitempty"`

	Posted bool `db:"posted" json:"posted"`

	Lines []Line `db:"-" json:"lines"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`

	// Version for optimistic locking
	Version int `db:"version" json:"version"`
}

// Line is one received lot.
type Line struct {
	ID     id.ID `db:"id" json:"id"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID  id.ID  `db:"item_id" json:"itemId"`
	BatchNo string `db:"batch_no" json:"batchNo"`

	// Quantity in UOM; converted to the item's base unit at posting
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UOM      string         `db:"uom" json:"uom"`

	// RatePerUnit is the cost per base unit
	RatePerUnit types.Money `db:"rate_per_unit" json:"ratePerUnit"`

	MfgDate    *time.Time `db:"mfg_date" json:"mfgDate,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// BatchID references the batch opened at posting
	BatchID *id.ID `db:"batch_id" json:"batchId,omitempty"`
}

// NewGoodsReceipt creates an unposted receipt document.
func NewGoodsReceipt(loc ledger.LocationRef, supplierRef string) *GoodsReceipt {
	now := time.Now().UTC()
	return &GoodsReceipt{
		ID:          id.New(),
		Date:        now,
		Location:    loc,
		SupplierRef: supplierRef,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// AddLine appends a received lot to the document.
func (g *GoodsReceipt) AddLine(itemID id.ID, batchNo string, qty types.Quantity, uom string, rate types.Money) *Line {
	g.Lines = append(g.Lines, Line{
		ID:          id.New(),
		LineNo:      len(g.Lines) + 1,
		ItemID:      itemID,
		BatchNo:     batchNo,
		Quantity:    qty,
		UOM:         uom,
		RatePerUnit: rate,
	})
	return &g.Lines[len(g.Lines)-1]
}

// Validate checks document invariants.
func (g *GoodsReceipt) Validate(ctx context.Context) error {
	if err := g.Location.Validate(); err != nil {
		return err
	}
	if len(g.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range g.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.BatchNo == "" {
			return apperror.NewValidation("batch number is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UOM == "" {
			return apperror.NewValidation("UOM is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.RatePerUnit.IsNegative() {
			return apperror.NewValidation("rate cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.MfgDate != nil && line.ExpiryDate != nil && line.ExpiryDate.Before(*line.MfgDate) {
			return apperror.NewValidation("expiry date precedes manufacture date").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
