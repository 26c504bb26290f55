package receipt

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence operations for goods receipts.
type Repository interface {
	Create(ctx context.Context, doc *GoodsReceipt) error
	GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error)

	// GetForUpdate returns the document with a row lock for posting.
	// Must be called inside a transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*GoodsReceipt, error)

	Update(ctx context.Context, doc *GoodsReceipt) error
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) ([]*GoodsReceipt, error)
}

// ListFilter for filtering goods receipts.
type ListFilter struct {
	Posted     *bool
	LocationID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
