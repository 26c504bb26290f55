package issue

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/ledger"
)

type testEnv struct {
	items   *item.Service
	ledger  *ledger.Service
	batches *ledger.MemoryBatchRepository
	entries *ledger.MemoryLedgerRepository
	repo    *MemoryRepository
	svc     *Service
}

func newTestEnv() *testEnv {
	txm := ledger.NewMemoryTxManager()
	items := item.NewService(item.NewMemoryRepository())
	batches := ledger.NewMemoryBatchRepository()
	entries := ledger.NewMemoryLedgerRepository()
	ledgerSvc := ledger.NewService(batches, entries, txm)
	repo := NewMemoryRepository()
	svc := NewService(repo, items, ledgerSvc, txm, NewMemoryNumberGenerator())

	return &testEnv{
		items:   items,
		ledger:  ledgerSvc,
		batches: batches,
		entries: entries,
		repo:    repo,
		svc:     svc,
	}
}

func storeLoc() ledger.LocationRef {
	return ledger.LocationRef{Type: ledger.LocationCentralStore, ID: id.MustParse("018f0000-0000-7000-8000-000000000001")}
}

func branchLoc() ledger.LocationRef {
	return ledger.LocationRef{Type: ledger.LocationBranch, ID: id.MustParse("018f0000-0000-7000-8000-000000000003")}
}

func seedItemAndBatch(t *testing.T, env *testEnv, qtyBase float64, rate string) (*item.Item, *ledger.Batch) {
	t.Helper()
	ctx := context.Background()

	it := item.NewItem("CBL-001", "Drop Cable", "cables", "M")
	require.NoError(t, env.items.Create(ctx, it))
	require.NoError(t, env.items.AddConversion(ctx, it.ID, "ROLL", "M",
		item.UomConversion{Factor: decimal.NewFromInt(100)}))

	b := ledger.NewBatch(it.ID, "LOT-001", storeLoc(),
		types.NewQuantityFromFloat64(qtyBase), types.MustMoney(rate))
	_, err := env.ledger.CreateBatch(ctx, b, id.New(), "GRN-001")
	require.NoError(t, err)
	return it, b
}

func TestCreate_AssignsNumber(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it, b := seedItemAndBatch(t, env, 500, "12")

	doc := NewMaterialIssue(storeLoc(), branchLoc())
	doc.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(2), "ROLL", types.MustMoney("18"))
	require.NoError(t, env.svc.Create(ctx, doc))

	assert.True(t, strings.HasPrefix(doc.Number, "MI-"), "number = %s", doc.Number)
	assert.Equal(t, StatusPending, doc.Status)
	assert.False(t, doc.Posted)

	second := NewMaterialIssue(storeLoc(), branchLoc())
	second.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(1), "ROLL", types.MustMoney("18"))
	require.NoError(t, env.svc.Create(ctx, second))
	assert.NotEqual(t, doc.Number, second.Number)
}

func TestCreate_RequiresLines(t *testing.T) {
	env := newTestEnv()

	doc := NewMaterialIssue(storeLoc(), branchLoc())
	err := env.svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestPost_DecrementsAndPrices(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it, b := seedItemAndBatch(t, env, 500, "12")

	doc := NewMaterialIssue(storeLoc(), branchLoc())
	doc.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(2), "ROLL", types.MustMoney("18"))
	require.NoError(t, env.svc.Create(ctx, doc))

	posted, err := env.svc.Post(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, posted.Posted)

	// 2 ROLL = 200 M taken from the batch.
	got, err := env.batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(300), got.CurrentQty)

	// One ISSUE entry under the document id.
	journal, err := env.entries.ListByTransaction(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, ledger.TransactionIssue, journal[0].TransactionType)
	assert.Equal(t, types.NewQuantityFromFloat64(200), journal[0].QuantityOut)
	assert.Equal(t, posted.Number, journal[0].ReferenceNo)

	// 200 M × ₹12 = ₹2400, GST 18% = ₹432.
	line := posted.Lines[0]
	assert.True(t, line.OriginalBaseAmount.Equal(types.MustMoney("2400")))
	assert.True(t, line.OriginalGSTAmount.Equal(types.MustMoney("432")))
	assert.True(t, line.OriginalTotalAmount.Equal(types.MustMoney("2832")))
}

func TestPost_Twice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it, b := seedItemAndBatch(t, env, 500, "12")

	doc := NewMaterialIssue(storeLoc(), branchLoc())
	doc.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(1), "ROLL", types.MustMoney("18"))
	require.NoError(t, env.svc.Create(ctx, doc))

	_, err := env.svc.Post(ctx, doc.ID)
	require.NoError(t, err)

	_, err = env.svc.Post(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))

	// No double decrement.
	got, err := env.batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(400), got.CurrentQty)
}

func TestPost_UnknownConversion(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it, b := seedItemAndBatch(t, env, 500, "12")

	doc := NewMaterialIssue(storeLoc(), branchLoc())
	doc.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(1), "BOX", types.MustMoney("18"))
	require.NoError(t, env.svc.Create(ctx, doc))

	_, err := env.svc.Post(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConversionNotFound))
}

func TestPost_InsufficientStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it, b := seedItemAndBatch(t, env, 150, "12")

	doc := NewMaterialIssue(storeLoc(), branchLoc())
	doc.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(2), "ROLL", types.MustMoney("18"))
	require.NoError(t, env.svc.Create(ctx, doc))

	_, err := env.svc.Post(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	got, err := env.batches.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(150), got.CurrentQty)
}
