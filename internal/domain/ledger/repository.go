package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// BatchRepository defines persistence operations for batches.
type BatchRepository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetForUpdate returns the batch with a row lock. Must be called
	// inside a transaction; the store serializes concurrent writers.
	GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)

	// UpdateQuantity persists a new balance computed by the caller.
	UpdateQuantity(ctx context.Context, batchID id.ID, qty types.Quantity) error

	List(ctx context.Context, filter BatchFilter) ([]*Batch, error)
}

// BatchFilter for filtering batch queries.
type BatchFilter struct {
	ItemID       *id.ID
	LocationType *LocationType
	LocationID   *id.ID
	ExcludeZero  bool
	Limit        int
	Offset       int
}

// LedgerRepository defines persistence operations for the journal.
// The journal is append-only: no update or delete methods exist.
type LedgerRepository interface {
	// Append persists one immutable entry.
	Append(ctx context.Context, e *Entry) error

	GetByID(ctx context.Context, entryID id.ID) (*Entry, error)

	// ListByTransaction returns all entries for a transaction id,
	// in creation order.
	ListByTransaction(ctx context.Context, txnID id.ID) ([]Entry, error)

	// ListByBatch returns the movement history of one (item, batch).
	ListByBatch(ctx context.Context, itemID, batchID id.ID, filter EntryFilter) ([]Entry, error)

	// ListReversalsOf returns entries whose reversal_of points at entries
	// of the given transaction. Used for the idempotency guard.
	ListReversalsOf(ctx context.Context, txnID id.ID) ([]Entry, error)
}

// EntryFilter for filtering journal history queries.
type EntryFilter struct {
	Type     *TransactionType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
