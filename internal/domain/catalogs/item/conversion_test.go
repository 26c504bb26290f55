package item

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

func litreItem() *Item {
	it := NewItem("CHEM-01", "Coolant", "chemicals", "ML")
	it.Conversions = []UomConversion{
		{ItemID: it.ID, FromUOM: "L", ToUOM: "ML", Factor: decimal.NewFromInt(1000)},
	}
	return it
}

func TestResolveConversion_Identity(t *testing.T) {
	it := litreItem()

	res, err := ResolveConversion(it, "ML")
	require.NoError(t, err)
	assert.Equal(t, DirectionDirect, res.Direction)
	assert.True(t, res.Factor.Equal(decimal.NewFromInt(1)))

	qty := types.NewQuantityFromFloat64(42)
	assert.Equal(t, qty, res.Apply(qty))
}

func TestResolveConversion_Direct(t *testing.T) {
	it := litreItem()

	res, err := ResolveConversion(it, "L")
	require.NoError(t, err)
	assert.Equal(t, DirectionDirect, res.Direction)

	got := res.Apply(types.NewQuantityFromFloat64(4))
	assert.Equal(t, types.NewQuantityFromFloat64(4000), got)
}

func TestResolveConversion_Inverse(t *testing.T) {
	// Only the ML->box record exists; resolving box must use its inverse.
	it := NewItem("CHEM-02", "Sealant", "chemicals", "ML")
	it.Conversions = []UomConversion{
		{ItemID: it.ID, FromUOM: "ML", ToUOM: "box", Factor: decimal.NewFromFloat(0.002)},
	}

	res, err := ResolveConversion(it, "box")
	require.NoError(t, err)
	assert.Equal(t, DirectionInverse, res.Direction)
	assert.True(t, res.Factor.Equal(decimal.NewFromFloat(0.002)))

	// 1 box = 1 / 0.002 = 500 ML
	got := res.Apply(types.NewQuantityFromFloat64(1))
	assert.Equal(t, types.NewQuantityFromFloat64(500), got)
}

func TestResolveConversion_NotFound(t *testing.T) {
	it := litreItem()

	_, err := ResolveConversion(it, "KG")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConversionNotFound))
}

func TestResolveConversion_SymmetryRoundTrip(t *testing.T) {
	// A single stored L->ML record must serve both directions with the
	// same factor, and x L -> ML -> L must return x.
	it := litreItem()

	direct, err := ResolveConversion(it, "L")
	require.NoError(t, err)

	// Inverse pair (base -> L) is not stored explicitly; build an item
	// whose base is L to resolve the opposite direction.
	back := NewItem("CHEM-01B", "Coolant", "chemicals", "L")
	back.Conversions = it.Conversions
	inverse, err := ResolveConversion(back, "ML")
	require.NoError(t, err)
	assert.Equal(t, DirectionInverse, inverse.Direction)
	assert.True(t, inverse.Factor.Equal(direct.Factor))

	x := types.NewQuantityFromFloat64(7.25)
	roundTrip := inverse.Apply(direct.Apply(x))
	assert.Equal(t, x, roundTrip)
}

func TestResolveConversion_InverseRounding(t *testing.T) {
	// 3 units with factor 7 does not divide evenly; result rounds at the
	// 4th fractional digit.
	it := NewItem("MISC-01", "Wire", "cables", "m")
	it.Conversions = []UomConversion{
		{ItemID: it.ID, FromUOM: "m", ToUOM: "coil", Factor: decimal.NewFromInt(7)},
	}

	res, err := ResolveConversion(it, "coil")
	require.NoError(t, err)
	assert.Equal(t, DirectionInverse, res.Direction)

	got := res.Apply(types.NewQuantityFromFloat64(3))
	assert.InDelta(t, 3.0/7.0, got.Float64(), 0.0001)
}
