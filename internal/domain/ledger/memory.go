package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// MemoryBatchRepository is an in-memory BatchRepository.
// Used by tests and the seed tool.
type MemoryBatchRepository struct {
	mu      sync.RWMutex
	batches map[id.ID]*Batch
}

var _ BatchRepository = (*MemoryBatchRepository)(nil)

// NewMemoryBatchRepository creates an empty in-memory batch repository.
func NewMemoryBatchRepository() *MemoryBatchRepository {
	return &MemoryBatchRepository{batches: make(map[id.ID]*Batch)}
}

func (r *MemoryBatchRepository) Create(ctx context.Context, b *Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[b.ID]; ok {
		return apperror.NewDuplicate("batch", "id", b.ID.String())
	}
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *MemoryBatchRepository) GetByID(ctx context.Context, batchID id.ID) (*Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	cp := *b
	return &cp, nil
}

// GetForUpdate behaves like GetByID; the in-memory store relies on the
// caller's single-writer discipline instead of row locks.
func (r *MemoryBatchRepository) GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error) {
	return r.GetByID(ctx, batchID)
}

func (r *MemoryBatchRepository) UpdateQuantity(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	if qty.IsNegative() {
		return apperror.NewLedgerInconsistent("batch quantity would go negative").
			WithDetail("batch_id", batchID.String())
	}
	b.CurrentQty = qty
	b.UpdatedAt = time.Now().UTC()
	b.Version++
	return nil
}

func (r *MemoryBatchRepository) List(ctx context.Context, filter BatchFilter) ([]*Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Batch
	for _, b := range r.batches {
		if filter.ItemID != nil && b.ItemID != *filter.ItemID {
			continue
		}
		if filter.LocationType != nil && b.Location.Type != *filter.LocationType {
			continue
		}
		if filter.LocationID != nil && b.Location.ID != *filter.LocationID {
			continue
		}
		if filter.ExcludeZero && b.CurrentQty.IsZero() {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].BatchNo < out[j].BatchNo })
	return out, nil
}

// MemoryLedgerRepository is an in-memory append-only LedgerRepository.
type MemoryLedgerRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

var _ LedgerRepository = (*MemoryLedgerRepository)(nil)

// NewMemoryLedgerRepository creates an empty in-memory journal.
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{}
}

func (r *MemoryLedgerRepository) Append(ctx context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryLedgerRepository) GetByID(ctx context.Context, entryID id.ID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].ID == entryID {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("ledger entry", entryID.String())
}

func (r *MemoryLedgerRepository) ListByTransaction(ctx context.Context, txnID id.ID) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.TransactionID == txnID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryLedgerRepository) ListByBatch(ctx context.Context, itemID, batchID id.ID, filter EntryFilter) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.ItemID != itemID || e.BatchID != batchID {
			continue
		}
		if filter.Type != nil && e.TransactionType != *filter.Type {
			continue
		}
		if filter.FromDate != nil && e.TransactionDate.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && e.TransactionDate.After(*filter.ToDate) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MemoryLedgerRepository) ListReversalsOf(ctx context.Context, txnID id.ID) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	originals := make(map[id.ID]bool)
	for _, e := range r.entries {
		if e.TransactionID == txnID && !e.IsReversal() {
			originals[e.ID] = true
		}
	}

	var out []Entry
	for _, e := range r.entries {
		if e.ReversalOf != nil && originals[*e.ReversalOf] {
			out = append(out, e)
		}
	}
	return out, nil
}

// MemoryTxManager satisfies tx.Manager without real transactions.
// The in-memory repositories apply writes immediately, so tests that
// exercise rollback behavior use the postgres implementation instead.
type MemoryTxManager struct{}

// NewMemoryTxManager creates a pass-through transaction manager.
func NewMemoryTxManager() *MemoryTxManager {
	return &MemoryTxManager{}
}

func (m *MemoryTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MemoryTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
