package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

func newTestEngine() (*Service, *Engine, *MemoryBatchRepository, *MemoryLedgerRepository) {
	svc, batches, entries := newTestService()
	return svc, NewEngine(svc), batches, entries
}

func issueFromBatch(t *testing.T, svc *Service, b *Batch, txnID id.ID, qty float64) *Entry {
	t.Helper()

	e, err := svc.AppendMovement(context.Background(), Movement{
		ItemID:        b.ItemID,
		BatchID:       b.ID,
		Location:      b.Location,
		Type:          TransactionIssue,
		TransactionID: txnID,
		QuantityOut:   types.NewQuantityFromFloat64(qty),
		RatePerUnit:   b.RatePerUnit,
		ReferenceNo:   "MI-001",
	})
	require.NoError(t, err)
	return e
}

func TestReverse_ExactCompensation(t *testing.T) {
	svc, engine, batches, _ := newTestEngine()
	ctx := context.Background()

	b1 := seedBatch(t, svc, 100, "2")
	b2 := NewBatch(id.New(), "LOT-002", centralStore(),
		types.NewQuantityFromFloat64(60), types.MustMoney("4"))
	_, err := svc.CreateBatch(ctx, b2, id.New(), "GRN-002")
	require.NoError(t, err)

	txnID := id.New()
	orig1 := issueFromBatch(t, svc, b1, txnID, 30)
	orig2 := issueFromBatch(t, svc, b2, txnID, 10)

	reversals, err := engine.Reverse(ctx, txnID, "approver rejected the issue")
	require.NoError(t, err)
	require.Len(t, reversals, 2)

	byOriginal := map[id.ID]Entry{}
	for _, r := range reversals {
		require.NotNil(t, r.ReversalOf)
		byOriginal[*r.ReversalOf] = r
	}

	for _, orig := range []*Entry{orig1, orig2} {
		rev, ok := byOriginal[orig.ID]
		require.True(t, ok, "original %s has no reversal", orig.ID)
		assert.Equal(t, TransactionAdjustment, rev.TransactionType)
		assert.Equal(t, orig.QuantityOut, rev.QuantityIn)
		assert.Equal(t, orig.QuantityIn, rev.QuantityOut)
		assert.True(t, rev.BalanceValue.Equal(orig.BalanceValue.Neg()))
		assert.True(t, rev.SystemGenerated)
		assert.Equal(t, "approver rejected the issue", rev.Notes)
	}

	// Batch balances returned to pre-transaction values.
	got1, err := batches.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(100), got1.CurrentQty)

	got2, err := batches.GetByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(60), got2.CurrentQty)
}

func TestReverse_Idempotent(t *testing.T) {
	svc, engine, batches, _ := newTestEngine()
	ctx := context.Background()

	b := seedBatch(t, svc, 100, "2")
	txnID := id.New()
	issueFromBatch(t, svc, b, txnID, 25)

	_, err := engine.Reverse(ctx, txnID, "first reversal")
	require.NoError(t, err)

	_, err = engine.Reverse(ctx, txnID, "second reversal")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))

	// No double restoration.
	got, err := batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(100), got.CurrentQty)
}

func TestReverse_RequiresReason(t *testing.T) {
	svc, engine, _, _ := newTestEngine()

	b := seedBatch(t, svc, 10, "1")
	txnID := id.New()
	issueFromBatch(t, svc, b, txnID, 5)

	_, err := engine.Reverse(context.Background(), txnID, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingRejectionReason))
}

func TestReverse_UnknownTransaction(t *testing.T) {
	_, engine, _, _ := newTestEngine()

	_, err := engine.Reverse(context.Background(), id.New(), "nothing to undo")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReverseScoped_LeavesSiblingsUntouched(t *testing.T) {
	svc, engine, batches, entries := newTestEngine()
	ctx := context.Background()

	b1 := seedBatch(t, svc, 100, "2")
	b2 := NewBatch(id.New(), "LOT-002", centralStore(),
		types.NewQuantityFromFloat64(60), types.MustMoney("4"))
	_, err := svc.CreateBatch(ctx, b2, id.New(), "GRN-002")
	require.NoError(t, err)

	txnID := id.New()
	issueFromBatch(t, svc, b1, txnID, 30)
	orig2 := issueFromBatch(t, svc, b2, txnID, 10)

	reversals, err := engine.ReverseScoped(ctx, txnID, b2.ItemID, b2.ID, "line rejected")
	require.NoError(t, err)
	require.Len(t, reversals, 1)
	assert.Equal(t, orig2.ID, *reversals[0].ReversalOf)

	// Sibling batch stays decremented.
	got1, err := batches.GetByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(70), got1.CurrentQty)

	// Scoped batch restored.
	got2, err := batches.GetByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(60), got2.CurrentQty)

	// Re-reversing the same scope fails; the sibling scope would still work.
	_, err = engine.ReverseScoped(ctx, txnID, b2.ItemID, b2.ID, "again")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))

	all, err := entries.ListByTransaction(ctx, txnID)
	require.NoError(t, err)
	reversalCount := 0
	for _, e := range all {
		if e.IsReversal() {
			reversalCount++
		}
	}
	assert.Equal(t, 1, reversalCount)
}

func TestReverse_ReceiptDecrementsBatch(t *testing.T) {
	svc, engine, batches, _ := newTestEngine()
	ctx := context.Background()

	b := seedBatch(t, svc, 40, "2")

	// A later receipt into the same batch, then its reversal.
	txnID := id.New()
	_, err := svc.AppendMovement(ctx, Movement{
		ItemID:        b.ItemID,
		BatchID:       b.ID,
		Location:      b.Location,
		Type:          TransactionReceipt,
		TransactionID: txnID,
		QuantityIn:    types.NewQuantityFromFloat64(15),
		RatePerUnit:   b.RatePerUnit,
	})
	require.NoError(t, err)

	_, err = engine.Reverse(ctx, txnID, "receipt entered twice")
	require.NoError(t, err)

	got, err := batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(40), got.CurrentQty)
}
