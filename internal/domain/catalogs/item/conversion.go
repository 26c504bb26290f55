package item

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// Direction indicates how a stored conversion record is applied.
type Direction string

const (
	// DirectionDirect means the record matched (from, base): multiply by factor.
	DirectionDirect Direction = "direct"
	// DirectionInverse means the record matched (base, from): divide by factor.
	DirectionInverse Direction = "inverse"
)

// Resolution is the outcome of resolving a conversion between a source
// unit and the item's base unit.
type Resolution struct {
	Factor    decimal.Decimal
	Direction Direction
}

// Apply converts a quantity expressed in the source unit to the base unit.
func (r Resolution) Apply(qty types.Quantity) types.Quantity {
	d := qty.Decimal()
	if r.Direction == DirectionInverse {
		// Division is not exact for arbitrary rationals; 16 digits is far
		// beyond the 4-digit fixed-point the ledger keeps.
		return types.NewQuantityFromDecimal(d.DivRound(r.Factor, 16))
	}
	return types.NewQuantityFromDecimal(d.Mul(r.Factor))
}

// ApplyDecimal converts a quantity keeping full decimal precision.
func (r Resolution) ApplyDecimal(qty decimal.Decimal) decimal.Decimal {
	if r.Direction == DirectionInverse {
		return qty.DivRound(r.Factor, 16)
	}
	return qty.Mul(r.Factor)
}

// ResolveConversion finds how to convert fromUOM into the item's base unit.
// Lookup order: identity, direct record (from → base), inverse record
// (base → from). If none exists the resolution fails; callers must not
// silently assume a 1:1 factor.
func ResolveConversion(it *Item, fromUOM string) (Resolution, error) {
	if fromUOM == it.BaseUOM {
		return Resolution{Factor: decimal.NewFromInt(1), Direction: DirectionDirect}, nil
	}

	for _, c := range it.Conversions {
		if c.FromUOM == fromUOM && c.ToUOM == it.BaseUOM {
			return Resolution{Factor: c.Factor, Direction: DirectionDirect}, nil
		}
	}

	for _, c := range it.Conversions {
		if c.FromUOM == it.BaseUOM && c.ToUOM == fromUOM {
			return Resolution{Factor: c.Factor, Direction: DirectionInverse}, nil
		}
	}

	return Resolution{}, apperror.NewConversionNotFound(it.ID.String(), fromUOM, it.BaseUOM)
}
