package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

func contextWithActor(userID, role, ip string) context.Context {
	return appctx.WithActor(context.Background(), &appctx.Actor{
		UserID:    userID,
		Role:      role,
		IPAddress: ip,
		UserAgent: "go-test",
		SessionID: "sess-1",
	})
}

func newTestService() (*Service, *MemoryBatchRepository, *MemoryLedgerRepository) {
	batches := NewMemoryBatchRepository()
	entries := NewMemoryLedgerRepository()
	svc := NewService(batches, entries, NewMemoryTxManager())
	return svc, batches, entries
}

func centralStore() LocationRef {
	return LocationRef{Type: LocationCentralStore, ID: id.MustParse("018f0000-0000-7000-8000-000000000001")}
}

func seedBatch(t *testing.T, svc *Service, qty float64, rate string) *Batch {
	t.Helper()

	b := NewBatch(id.New(), "LOT-001", centralStore(),
		types.NewQuantityFromFloat64(qty), types.MustMoney(rate))
	_, err := svc.CreateBatch(context.Background(), b, id.New(), "GRN-001")
	require.NoError(t, err)
	return b
}

func TestCreateBatch_OpeningReceiptEntry(t *testing.T) {
	svc, batches, entries := newTestService()
	ctx := context.Background()

	b := seedBatch(t, svc, 100, "2")

	stored, err := batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(100), stored.CurrentQty)

	history, err := entries.ListByBatch(ctx, b.ItemID, b.ID, EntryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, TransactionReceipt, history[0].TransactionType)
	assert.Equal(t, types.NewQuantityFromFloat64(100), history[0].QuantityIn)
	assert.Equal(t, types.NewQuantityFromFloat64(100), history[0].BalanceQuantity)
	assert.True(t, history[0].BalanceValue.Equal(types.MustMoney("200")))
}

func TestAppendMovement_ExactlyOneQuantity(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	b := seedBatch(t, svc, 100, "2")

	base := Movement{
		ItemID:        b.ItemID,
		BatchID:       b.ID,
		Location:      b.Location,
		Type:          TransactionIssue,
		TransactionID: id.New(),
		RatePerUnit:   b.RatePerUnit,
	}

	// Neither quantity set.
	_, err := svc.AppendMovement(ctx, base)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	// Both quantities set.
	both := base
	both.QuantityIn = types.NewQuantityFromFloat64(1)
	both.QuantityOut = types.NewQuantityFromFloat64(1)
	_, err = svc.AppendMovement(ctx, both)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAppendMovement_InsufficientStock(t *testing.T) {
	svc, batches, entries := newTestService()
	ctx := context.Background()
	b := seedBatch(t, svc, 10, "5")

	_, err := svc.AppendMovement(ctx, Movement{
		ItemID:        b.ItemID,
		BatchID:       b.ID,
		Location:      b.Location,
		Type:          TransactionIssue,
		TransactionID: id.New(),
		QuantityOut:   types.NewQuantityFromFloat64(11),
		RatePerUnit:   b.RatePerUnit,
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// No mutation happened.
	stored, err := batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(10), stored.CurrentQty)

	history, err := entries.ListByBatch(ctx, b.ItemID, b.ID, EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1) // opening receipt only
}

func TestAppendMovement_UnknownBatch(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AppendMovement(context.Background(), Movement{
		ItemID:        id.New(),
		BatchID:       id.New(),
		Location:      centralStore(),
		Type:          TransactionIssue,
		TransactionID: id.New(),
		QuantityOut:   types.NewQuantityFromFloat64(1),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

// Reconciliation invariant: after any sequence of movements the batch
// balance equals sum(quantity_in) - sum(quantity_out) over its entries.
func TestReconciliation_MixedSequence(t *testing.T) {
	svc, batches, entries := newTestService()
	ctx := context.Background()
	b := seedBatch(t, svc, 100, "3")

	steps := []Movement{
		{Type: TransactionIssue, QuantityOut: types.NewQuantityFromFloat64(30)},
		{Type: TransactionReturn, QuantityIn: types.NewQuantityFromFloat64(5)},
		{Type: TransactionTransfer, QuantityOut: types.NewQuantityFromFloat64(20.5)},
		{Type: TransactionConsumption, QuantityOut: types.NewQuantityFromFloat64(12.25)},
		{Type: TransactionReceipt, QuantityIn: types.NewQuantityFromFloat64(40)},
	}
	for _, m := range steps {
		m.ItemID = b.ItemID
		m.BatchID = b.ID
		m.Location = b.Location
		m.TransactionID = id.New()
		m.RatePerUnit = b.RatePerUnit
		_, err := svc.AppendMovement(ctx, m)
		require.NoError(t, err)
	}

	stored, err := batches.GetByID(ctx, b.ID)
	require.NoError(t, err)

	history, err := entries.ListByBatch(ctx, b.ItemID, b.ID, EntryFilter{})
	require.NoError(t, err)

	var sum types.Quantity
	for _, e := range history {
		sum += e.QuantityIn - e.QuantityOut
	}
	assert.Equal(t, stored.CurrentQty, sum)
	assert.Equal(t, types.NewQuantityFromFloat64(82.25), stored.CurrentQty)

	// Every entry's running balance matches its value at rate.
	for _, e := range history {
		assert.True(t, e.BalanceValue.Equal(e.BalanceQuantity.Decimal().Mul(e.RatePerUnit)),
			"entry %s balance value drifted", e.ID)
	}
}

func TestAppendMovement_AuditStampedFromContext(t *testing.T) {
	svc, _, entries := newTestService()
	b := seedBatch(t, svc, 50, "1")

	ctx := contextWithActor("tech-17", "technician", "10.0.0.9")
	_, err := svc.AppendMovement(ctx, Movement{
		ItemID:        b.ItemID,
		BatchID:       b.ID,
		Location:      b.Location,
		Type:          TransactionConsumption,
		TransactionID: id.New(),
		QuantityOut:   types.NewQuantityFromFloat64(2),
		RatePerUnit:   b.RatePerUnit,
	})
	require.NoError(t, err)

	history, err := entries.ListByBatch(context.Background(), b.ItemID, b.ID, EntryFilter{})
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, "tech-17", last.CreatedBy)
	assert.Equal(t, "technician", last.UserRole)
	assert.Equal(t, "10.0.0.9", last.IPAddress)
}
