package issue

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence operations for material issues.
type Repository interface {
	Create(ctx context.Context, doc *MaterialIssue) error
	GetByID(ctx context.Context, docID id.ID) (*MaterialIssue, error)

	// GetForUpdate returns the document with a row lock for approval
	// processing. Must be called inside a transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*MaterialIssue, error)

	// Update persists document header changes (status, approval fields).
	Update(ctx context.Context, doc *MaterialIssue) error

	// SaveLines persists the line set (approved_* fields, line statuses).
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)

	List(ctx context.Context, filter ListFilter) ([]*MaterialIssue, error)
}

// ListFilter for filtering material issues.
type ListFilter struct {
	Status       *Status
	FromLocation *id.ID
	ToLocation   *id.ID
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}
