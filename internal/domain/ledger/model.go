// Package ledger provides the batch ledger store and the append-only
// stock ledger journal, together with the reversal engine.
package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// LocationType identifies the kind of place holding stock.
type LocationType string

const (
	LocationCentralStore LocationType = "central_store"
	LocationBranch       LocationType = "branch"
	LocationTechnician   LocationType = "technician"
)

// IsValid reports whether the location type is one of the closed set.
func (t LocationType) IsValid() bool {
	switch t {
	case LocationCentralStore, LocationBranch, LocationTechnician:
		return true
	}
	return false
}

// LocationRef points at the location that owns a batch or movement.
type LocationRef struct {
	Type LocationType `db:"location_type" json:"locationType"`
	ID   id.ID        `db:"location_id" json:"locationId"`
}

// Validate checks the location reference.
func (l LocationRef) Validate() error {
	if !l.Type.IsValid() {
		return apperror.NewValidation("invalid location type").
			WithDetail("location_type", string(l.Type))
	}
	if id.IsNil(l.ID) {
		return apperror.NewValidation("location id is required").
			WithDetail("field", "locationId")
	}
	return nil
}

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	TransactionReceipt     TransactionType = "RECEIPT"
	TransactionIssue       TransactionType = "ISSUE"
	TransactionReturn      TransactionType = "RETURN"
	TransactionTransfer    TransactionType = "TRANSFER"
	TransactionConsumption TransactionType = "CONSUMPTION"
	// TransactionAdjustment is used for every reversal entry.
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// IsValid reports whether the transaction type is one of the closed set.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionReceipt, TransactionIssue, TransactionReturn,
		TransactionTransfer, TransactionConsumption, TransactionAdjustment:
		return true
	}
	return false
}

// Batch is the authoritative current-quantity record for one received lot
// of an item at one location. Never deleted; zero quantity is a valid
// terminal state.
type Batch struct {
	ID      id.ID  `db:"id" json:"id"`
	ItemID  id.ID  `db:"item_id" json:"itemId"`
	BatchNo string `db:"batch_no" json:"batchNo"`

	Location LocationRef `db:"-" json:"location"`

	// CurrentQty must never go negative
	CurrentQty types.Quantity `db:"current_qty" json:"currentQty"`

	// RatePerUnit is the cost of one base unit in this batch
	RatePerUnit types.Money `db:"rate_per_unit" json:"ratePerUnit"`

	MfgDate    *time.Time `db:"mfg_date" json:"mfgDate,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Version for optimistic locking
	Version int `db:"version" json:"version"`
}

// NewBatch creates a batch record for a received lot.
func NewBatch(itemID id.ID, batchNo string, loc LocationRef, qty types.Quantity, rate types.Money) *Batch {
	now := time.Now().UTC()
	return &Batch{
		ID:          id.New(),
		ItemID:      itemID,
		BatchNo:     batchNo,
		Location:    loc,
		CurrentQty:  qty,
		RatePerUnit: rate,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Validate checks batch invariants.
func (b *Batch) Validate(ctx context.Context) error {
	if id.IsNil(b.ItemID) {
		return apperror.NewValidation("item is required").
			WithDetail("field", "itemId")
	}
	if b.BatchNo == "" {
		return apperror.NewValidation("batch number is required").
			WithDetail("field", "batchNo")
	}
	if err := b.Location.Validate(); err != nil {
		return err
	}
	if b.CurrentQty.IsNegative() {
		return apperror.NewLedgerInconsistent("batch quantity is negative").
			WithDetail("batch_id", b.ID.String())
	}
	if b.RatePerUnit.IsNegative() {
		return apperror.NewValidation("rate per unit cannot be negative").
			WithDetail("field", "ratePerUnit")
	}
	return nil
}

// AuditInfo carries who performed a movement and from where.
type AuditInfo struct {
	CreatedBy string `db:"created_by" json:"createdBy"`
	UserRole  string `db:"user_role" json:"userRole,omitempty"`
	IPAddress string `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent string `db:"user_agent" json:"userAgent,omitempty"`
	SessionID string `db:"session_id" json:"sessionId,omitempty"`
}

// Entry is one immutable record of a quantity/value movement against a
// batch. Entries are never updated or deleted; corrections happen only
// via new ADJUSTMENT entries.
type Entry struct {
	ID      id.ID `db:"id" json:"id"`
	ItemID  id.ID `db:"item_id" json:"itemId"`
	BatchID id.ID `db:"batch_id" json:"batchId"`

	Location LocationRef `db:"-" json:"location"`

	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	TransactionID   id.ID           `db:"transaction_id" json:"transactionId"`
	TransactionDate time.Time       `db:"transaction_date" json:"transactionDate"`

	// Exactly one of QuantityIn/QuantityOut is positive, the other zero
	QuantityIn  types.Quantity `db:"quantity_in" json:"quantityIn"`
	QuantityOut types.Quantity `db:"quantity_out" json:"quantityOut"`

	// BalanceQuantity is the batch balance after this movement
	BalanceQuantity types.Quantity `db:"balance_quantity" json:"balanceQuantity"`

	RatePerUnit types.Money `db:"rate_per_unit" json:"ratePerUnit"`

	// BalanceValue is BalanceQuantity × RatePerUnit, negated on reversals
	BalanceValue types.Money `db:"balance_value" json:"balanceValue"`

	AuditInfo

	ReferenceNo string `db:"reference_no" json:"referenceNo,omitempty"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	// SystemGenerated is true exactly for reversal entries
	SystemGenerated bool `db:"system_generated" json:"systemGenerated"`

	// ReversalOf points at the entry this one compensates, nil otherwise
	ReversalOf *id.ID `db:"reversal_of" json:"reversalOf,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// IsReversal reports whether the entry compensates another entry.
func (e *Entry) IsReversal() bool {
	return e.ReversalOf != nil
}

// SignedQuantity returns the movement quantity with sign
// (in = positive, out = negative).
func (e *Entry) SignedQuantity() types.Quantity {
	if e.QuantityOut.IsPositive() {
		return e.QuantityOut.Neg()
	}
	return e.QuantityIn
}

// Movement describes a requested ledger movement. The service turns it
// into an atomic batch mutation plus journal entry.
type Movement struct {
	ItemID  id.ID
	BatchID id.ID

	Location LocationRef

	Type            TransactionType
	TransactionID   id.ID
	TransactionDate time.Time

	// Exactly one must be positive
	QuantityIn  types.Quantity
	QuantityOut types.Quantity

	RatePerUnit types.Money

	ReferenceNo string
	Notes       string

	// SystemGenerated marks reversal entries; set by the reversal engine
	SystemGenerated bool
	ReversalOf      *id.ID

	// BalanceValue overrides the computed balance × rate when non-nil.
	// The reversal engine uses it to store the exact negation of the
	// original entry's value.
	BalanceValue *types.Money
}

// Validate checks the movement request before any mutation.
func (m *Movement) Validate() error {
	if id.IsNil(m.ItemID) {
		return apperror.NewValidation("item is required").
			WithDetail("field", "itemId")
	}
	if id.IsNil(m.BatchID) {
		return apperror.NewValidation("batch is required").
			WithDetail("field", "batchId")
	}
	if id.IsNil(m.TransactionID) {
		return apperror.NewValidation("transaction id is required").
			WithDetail("field", "transactionId")
	}
	if !m.Type.IsValid() {
		return apperror.NewValidation("invalid transaction type").
			WithDetail("transaction_type", string(m.Type))
	}
	if err := m.Location.Validate(); err != nil {
		return err
	}

	in := m.QuantityIn.IsPositive()
	out := m.QuantityOut.IsPositive()
	if in == out {
		return apperror.NewValidation("exactly one of quantityIn/quantityOut must be positive").
			WithDetail("quantity_in", m.QuantityIn.String()).
			WithDetail("quantity_out", m.QuantityOut.String())
	}
	if m.QuantityIn.IsNegative() || m.QuantityOut.IsNegative() {
		return apperror.NewValidation("quantities cannot be negative")
	}
	if m.RatePerUnit.IsNegative() {
		return apperror.NewValidation("rate per unit cannot be negative")
	}
	return nil
}
