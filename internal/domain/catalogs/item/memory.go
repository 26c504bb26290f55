package item

import (
	"context"
	"sort"
	"strings"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// MemoryRepository is an in-memory Repository implementation.
// Used by tests and the seed tool; not safe for production persistence.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[id.ID]*Item
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory item repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[id.ID]*Item)}
}

func (r *MemoryRepository) Create(ctx context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[it.ID]; ok {
		return apperror.NewDuplicate("item", "id", it.ID.String())
	}
	cp := *it
	cp.Conversions = append([]UomConversion(nil), it.Conversions...)
	r.items[it.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	cp := *it
	cp.Conversions = append([]UomConversion(nil), it.Conversions...)
	return &cp, nil
}

func (r *MemoryRepository) GetByCode(ctx context.Context, code string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.Code == code {
			cp := *it
			cp.Conversions = append([]UomConversion(nil), it.Conversions...)
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("item", code)
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Item
	for _, it := range r.items {
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(it.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(it.Code), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *it
		cp.Conversions = append([]UomConversion(nil), it.Conversions...)
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) AddConversion(ctx context.Context, conv UomConversion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[conv.ItemID]
	if !ok {
		return apperror.NewNotFound("item", conv.ItemID.String())
	}
	it.Conversions = append(it.Conversions, conv)
	return nil
}

func (r *MemoryRepository) GetConversions(ctx context.Context, itemID id.ID) ([]UomConversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	return append([]UomConversion(nil), it.Conversions...), nil
}
