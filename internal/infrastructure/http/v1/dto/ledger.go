package dto

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// LocationRefDTO identifies a stock-holding location on the wire.
type LocationRefDTO struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// ToRef converts to the domain location reference.
func (l LocationRefDTO) ToRef() (ledger.LocationRef, error) {
	locID, err := id.Parse(l.ID)
	if err != nil {
		return ledger.LocationRef{}, apperror.NewValidation("invalid location id").
			WithDetail("location_id", l.ID)
	}
	return ledger.LocationRef{Type: ledger.LocationType(l.Type), ID: locID}, nil
}

// FromLocationRef converts the domain reference back to the wire form.
func FromLocationRef(ref ledger.LocationRef) LocationRefDTO {
	return LocationRefDTO{Type: string(ref.Type), ID: ref.ID.String()}
}

// BatchResponse is the current state of one batch.
type BatchResponse struct {
	ID          string         `json:"id"`
	ItemID      string         `json:"itemId"`
	BatchNo     string         `json:"batchNo"`
	Location    LocationRefDTO `json:"location"`
	CurrentQty  types.Quantity `json:"currentQty"`
	RatePerUnit types.Money    `json:"ratePerUnit"`
	MfgDate     *time.Time     `json:"mfgDate,omitempty"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Version     int            `json:"version"`
}

// FromBatch creates BatchResponse from domain batch.
func FromBatch(b *ledger.Batch) *BatchResponse {
	return &BatchResponse{
		ID:          b.ID.String(),
		ItemID:      b.ItemID.String(),
		BatchNo:     b.BatchNo,
		Location:    FromLocationRef(b.Location),
		CurrentQty:  b.CurrentQty,
		RatePerUnit: b.RatePerUnit,
		MfgDate:     b.MfgDate,
		ExpiryDate:  b.ExpiryDate,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		Version:     b.Version,
	}
}

// EntryResponse is one immutable journal entry.
type EntryResponse struct {
	ID              string         `json:"id"`
	ItemID          string         `json:"itemId"`
	BatchID         string         `json:"batchId"`
	Location        LocationRefDTO `json:"location"`
	TransactionType string         `json:"transactionType"`
	TransactionID   string         `json:"transactionId"`
	TransactionDate time.Time      `json:"transactionDate"`
	QuantityIn      types.Quantity `json:"quantityIn"`
	QuantityOut     types.Quantity `json:"quantityOut"`
	BalanceQuantity types.Quantity `json:"balanceQuantity"`
	RatePerUnit     types.Money    `json:"ratePerUnit"`
	BalanceValue    types.Money    `json:"balanceValue"`
	CreatedBy       string         `json:"createdBy"`
	ReferenceNo     string         `json:"referenceNo,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	SystemGenerated bool           `json:"systemGenerated"`
	ReversalOf      *string        `json:"reversalOf,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// FromEntry creates EntryResponse from domain entry.
func FromEntry(e *ledger.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:              e.ID.String(),
		ItemID:          e.ItemID.String(),
		BatchID:         e.BatchID.String(),
		Location:        FromLocationRef(e.Location),
		TransactionType: string(e.TransactionType),
		TransactionID:   e.TransactionID.String(),
		TransactionDate: e.TransactionDate,
		QuantityIn:      e.QuantityIn,
		QuantityOut:     e.QuantityOut,
		BalanceQuantity: e.BalanceQuantity,
		RatePerUnit:     e.RatePerUnit,
		BalanceValue:    e.BalanceValue,
		CreatedBy:       e.CreatedBy,
		ReferenceNo:     e.ReferenceNo,
		Notes:           e.Notes,
		SystemGenerated: e.SystemGenerated,
		CreatedAt:       e.CreatedAt,
	}
	if e.ReversalOf != nil {
		s := e.ReversalOf.String()
		resp.ReversalOf = &s
	}
	return resp
}

// FromEntries maps a journal slice.
func FromEntries(entries []ledger.Entry) []*EntryResponse {
	out := make([]*EntryResponse, len(entries))
	for i := range entries {
		out[i] = FromEntry(&entries[i])
	}
	return out
}
