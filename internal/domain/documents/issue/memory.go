package issue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/pkg/numerator"
)

// MemoryRepository is an in-memory Repository implementation for tests
// and the seed tool.
type MemoryRepository struct {
	mu    sync.RWMutex
	docs  map[id.ID]*MaterialIssue
	lines map[id.ID][]Line
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:  make(map[id.ID]*MaterialIssue),
		lines: make(map[id.ID][]Line),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, doc *MaterialIssue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.ID]; exists {
		return apperror.NewDuplicate("material issue", "id", doc.ID.String())
	}
	r.docs[doc.ID] = copyDoc(doc)
	r.lines[doc.ID] = copyLines(doc.Lines)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, docID id.ID) (*MaterialIssue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(docID)
}

// GetForUpdate is identical to GetByID: the in-memory store has no row
// locks, callers serialize through the pass-through tx manager.
func (r *MemoryRepository) GetForUpdate(ctx context.Context, docID id.ID) (*MaterialIssue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(docID)
}

func (r *MemoryRepository) get(docID id.ID) (*MaterialIssue, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("material issue", docID.String())
	}
	out := copyDoc(doc)
	out.Lines = copyLines(r.lines[docID])
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, doc *MaterialIssue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[doc.ID]
	if !ok {
		return apperror.NewNotFound("material issue", doc.ID.String())
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
		return apperror.NewNotFound("material issue", docID.String())
	}
	r.lines[docID] = copyLines(lines)
	return nil
}

func (r *MemoryRepository) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.docs[docID]; !ok {
		return nil, apperror.NewNotFound("material issue", docID.String())
	}
	return copyLines(r.lines[docID]), nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*MaterialIssue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*MaterialIssue, 0, len(r.docs))
	for docID, doc := range r.docs {
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		if filter.FromLocation != nil && doc.FromLocation.ID != *filter.FromLocation {
			continue
		}
		if filter.ToLocation != nil && doc.ToLocation.ID != *filter.ToLocation {
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

func copyDoc(doc *MaterialIssue) *MaterialIssue {
	out := *doc
	out.Lines = nil
	return &out
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// MemoryNumberGenerator is a process-local NumberGenerator for tests
// and the seed tool.
type MemoryNumberGenerator struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryNumberGenerator creates an in-memory number generator.
func NewMemoryNumberGenerator() *MemoryNumberGenerator {
	return &MemoryNumberGenerator{counts: make(map[string]int64)}
}

func (g *MemoryNumberGenerator) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
	g.counts[key]++
	return fmt.Sprintf("%s-%s-%05d", cfg.Prefix, period.Format("2006"), g.counts[key]), nil
}
