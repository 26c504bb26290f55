// Package issue provides the material issue document and its approval items.
package issue

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// Status is the aggregate approval state of a material issue.
// PENDING is the only non-terminal state; a document transitions to a
// terminal status exactly once.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusPartial  Status = "PARTIAL"
)

// ItemStatus is the per-line approval state.
type ItemStatus string

const (
	ItemPending  ItemStatus = "PENDING"
	ItemApproved ItemStatus = "APPROVED"
	ItemRejected ItemStatus = "REJECTED"
)

// MaterialIssue records goods issued from one location to another,
// pending a downstream approver's decision. The document id doubles as
// the ledger transaction id for its movements.
type MaterialIssue struct {
	ID     id.ID  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`

	Date time.Time `db:"date" json:"date"`

	FromLocation ledger.LocationRef `db:"-" json:"fromLocation"`
	ToLocation   ledger.LocationRef `db:"-" json:"toLocation"`

	// Posted is true once batches are decremented and ISSUE entries exist
	Posted bool `db:"posted" json:"posted"`

	Status          Status `db:"status" json:"status"`
	Remarks         string `db:"remarks" json:"remarks,omitempty"`
	RejectionReason string `db:"rejection_reason" json:"rejectionReason,omitempty"`

	ApprovedBy string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`

	// Version for optimistic locking
	Version int `db:"version" json:"version"`
}

// Line is one approval item of a material issue.
type Line struct {
	ID     id.ID `db:"id" json:"id"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID  id.ID `db:"item_id" json:"itemId"`
	BatchID id.ID `db:"batch_id" json:"batchId"`

	// Requested quantity in OriginalUOM
	OriginalQuantity types.Quantity `db:"original_quantity" json:"originalQuantity"`
	OriginalUOM      string         `db:"original_uom" json:"originalUom"`

	// GSTPercentage is captured at issue time so approval recomputation
	// never re-reads tax configuration
	GSTPercentage types.Money `db:"gst_percentage" json:"gstPercentage"`

	// Amounts computed at posting from the batch rate
	OriginalBaseAmount  types.Money `db:"original_base_amount" json:"originalBaseAmount"`
	OriginalGSTAmount   types.Money `db:"original_gst_amount" json:"originalGstAmount"`
	OriginalTotalAmount types.Money `db:"original_total_amount" json:"originalTotalAmount"`

	// Approved values, populated once the line is processed
	ApprovedQuantity    *types.Quantity `db:"approved_quantity" json:"approvedQuantity,omitempty"`
	ApprovedUOM         string          `db:"approved_uom" json:"approvedUom,omitempty"`
	ApprovedBaseAmount  *types.Money    `db:"approved_base_amount" json:"approvedBaseAmount,omitempty"`
	ApprovedGSTAmount   *types.Money    `db:"approved_gst_amount" json:"approvedGstAmount,omitempty"`
	ApprovedTotalAmount *types.Money    `db:"approved_total_amount" json:"approvedTotalAmount,omitempty"`

	Status ItemStatus `db:"status" json:"status"`
}

// NewMaterialIssue creates a pending, unposted issue document.
func NewMaterialIssue(from, to ledger.LocationRef) *MaterialIssue {
	now := time.Now().UTC()
	return &MaterialIssue{
		ID:           id.New(),
		Date:         now,
		FromLocation: from,
		ToLocation:   to,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// AddLine appends an approval item to the issue.
func (m *MaterialIssue) AddLine(itemID, batchID id.ID, qty types.Quantity, uom string, gstPct types.Money) {
	m.Lines = append(m.Lines, Line{
		ID:               id.New(),
		LineNo:           len(m.Lines) + 1,
		ItemID:           itemID,
		BatchID:          batchID,
		OriginalQuantity: qty,
		OriginalUOM:      uom,
		GSTPercentage:    gstPct,
		Status:           ItemPending,
	})
}

// Validate checks document invariants.
func (m *MaterialIssue) Validate(ctx context.Context) error {
	if err := m.FromLocation.Validate(); err != nil {
		return err
	}
	if err := m.ToLocation.Validate(); err != nil {
		return err
	}
	if len(m.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range m.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if id.IsNil(line.BatchID) {
			return apperror.NewValidation("batch is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.OriginalQuantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.OriginalUOM == "" {
			return apperror.NewValidation("UOM is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.GSTPercentage.IsNegative() {
			return apperror.NewValidation("GST percentage cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// IsTerminal reports whether the aggregate status admits no further transition.
func (m *MaterialIssue) IsTerminal() bool {
	return m.Status != StatusPending
}

// CanDecide checks that an approval decision may still be applied.
func (m *MaterialIssue) CanDecide() error {
	if m.IsTerminal() {
		return apperror.NewInvalidStateTransition("material issue", string(m.Status), "decide").
			WithDetail("issue_id", m.ID.String())
	}
	if !m.Posted {
		return apperror.NewInvalidStateTransition("material issue", "draft", "decide").
			WithDetail("issue_id", m.ID.String())
	}
	return nil
}

// LineByID returns the line with the given id, or nil.
func (m *MaterialIssue) LineByID(lineID id.ID) *Line {
	for i := range m.Lines {
		if m.Lines[i].ID == lineID {
			return &m.Lines[i]
		}
	}
	return nil
}

// AggregateStatus derives the parent status from the line statuses:
// APPROVED if all lines approved, REJECTED if all rejected, PARTIAL when
// both outcomes are present.
func AggregateStatus(lines []Line) Status {
	approved, rejected := 0, 0
	for _, l := range lines {
		switch l.Status {
		case ItemApproved:
			approved++
		case ItemRejected:
			rejected++
		}
	}
	switch {
	case approved == len(lines):
		return StatusApproved
	case rejected == len(lines):
		return StatusRejected
	default:
		return StatusPartial
	}
}
