// Package item provides the item catalog and its unit-of-measure conversions.
package item

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Item represents a stocked material or spare part.
// Immutable after creation except for growth of the conversion list.
type Item struct {
	ID id.ID `db:"id" json:"id"`

	// Code is a human-readable identifier (unique)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Category groups items for reporting (e.g. "cables", "consumables")
	Category string `db:"category" json:"category"`

	// BaseUOM is the unit all batch quantities are kept in
	BaseUOM string `db:"base_uom" json:"baseUom"`

	// Conversions is the list of stored UOM conversion records for this item
	Conversions []UomConversion `db:"-" json:"conversions,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Version for optimistic locking
	Version int `db:"version" json:"version"`
}

// UomConversion relates two units of measure for one item.
// ToUOM quantity = FromUOM quantity × Factor.
type UomConversion struct {
	ID      id.ID  `db:"id" json:"id"`
	ItemID  id.ID  `db:"item_id" json:"itemId"`
	FromUOM string `db:"from_uom" json:"fromUom"`
	ToUOM   string `db:"to_uom" json:"toUom"`

	// Factor is a positive rational multiplier
	Factor decimal.Decimal `db:"factor" json:"factor"`
}

// NewItem creates a new Item with generated ID.
func NewItem(code, name, category, baseUOM string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Category:  category,
		BaseUOM:   baseUOM,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Validate checks item invariants.
func (i *Item) Validate(ctx context.Context) error {
	if i.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if i.BaseUOM == "" {
		return apperror.NewValidation("base UOM is required").
			WithDetail("field", "baseUom")
	}
	for _, c := range i.Conversions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks conversion invariants.
func (c *UomConversion) Validate() error {
	if c.FromUOM == "" || c.ToUOM == "" {
		return apperror.NewValidation("conversion units are required").
			WithDetail("field", "fromUom/toUom")
	}
	if c.FromUOM == c.ToUOM {
		return apperror.NewValidation("conversion units must differ").
			WithDetail("from_uom", c.FromUOM)
	}
	if !c.Factor.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("factor", c.Factor.String())
	}
	return nil
}

// HasConversion reports whether a conversion for the exact (from, to) pair exists.
func (i *Item) HasConversion(fromUOM, toUOM string) bool {
	for _, c := range i.Conversions {
		if c.FromUOM == fromUOM && c.ToUOM == toUOM {
			return true
		}
	}
	return false
}
