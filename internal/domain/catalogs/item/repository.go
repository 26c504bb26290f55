package item

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines persistence operations for the item catalog.
type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
	GetByCode(ctx context.Context, code string) (*Item, error)
	List(ctx context.Context, filter ListFilter) ([]*Item, error)

	// AddConversion appends a conversion record to the item's list.
	// Items are otherwise immutable after creation.
	AddConversion(ctx context.Context, conv UomConversion) error
	GetConversions(ctx context.Context, itemID id.ID) ([]UomConversion, error)
}

// ListFilter for filtering item queries.
type ListFilter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}
