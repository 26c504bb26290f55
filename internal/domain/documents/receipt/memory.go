package receipt

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// MemoryRepository is an in-memory Repository implementation for tests
// and the seed tool.
type MemoryRepository struct {
	mu    sync.RWMutex
	docs  map[id.ID]*GoodsReceipt
	lines map[id.ID][]Line
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:  make(map[id.ID]*GoodsReceipt),
		lines: make(map[id.ID][]Line),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, doc *GoodsReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.ID]; exists {
		return apperror.NewDuplicate("goods receipt", "id", doc.ID.String())
	}
	r.docs[doc.ID] = copyDoc(doc)
	r.lines[doc.ID] = copyLines(doc.Lines)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(docID)
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, docID id.ID) (*GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(docID)
}

func (r *MemoryRepository) get(docID id.ID) (*GoodsReceipt, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("goods receipt", docID.String())
	}
	out := copyDoc(doc)
	out.Lines = copyLines(r.lines[docID])
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, doc *GoodsReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[doc.ID]
	if !ok {
		return apperror.NewNotFound("goods receipt", doc.ID.String())
	}
	updated := copyDoc(doc)
	updated.Version = stored.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	r.docs[doc.ID] = updated

	doc.Version = updated.Version
	doc.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *MemoryRepository) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[docID]; !ok {
		return apperror.NewNotFound("goods receipt", docID.String())
	}
	r.lines[docID] = copyLines(lines)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*GoodsReceipt, 0, len(r.docs))
	for docID, doc := range r.docs {
		if filter.Posted != nil && doc.Posted != *filter.Posted {
			continue
		}
		if filter.LocationID != nil && doc.Location.ID != *filter.LocationID {
			continue
		}
		if filter.DateFrom != nil && doc.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && doc.Date.After(*filter.DateTo) {
			continue
		}
		out := copyDoc(doc)
		out.Lines = copyLines(r.lines[docID])
		result = append(result, out)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Number < result[j].Number
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func copyDoc(doc *GoodsReceipt) *GoodsReceipt {
	out := *doc
	out.Lines = nil
	return &out
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
