package receipt

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
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/ledger"
)

type testEnv struct {
	items   *item.Service
	ledger  *ledger.Service
	batches *ledger.MemoryBatchRepository
	entries *ledger.MemoryLedgerRepository
	svc     *Service
}

func newTestEnv() *testEnv {
	txm := ledger.NewMemoryTxManager()
	items := item.NewService(item.NewMemoryRepository())
	batches := ledger.NewMemoryBatchRepository()
	entries := ledger.NewMemoryLedgerRepository()
	ledgerSvc := ledger.NewService(batches, entries, txm)
	svc := NewService(NewMemoryRepository(), items, ledgerSvc, txm, issue.NewMemoryNumberGenerator())

	return &testEnv{
		items:   items,
		ledger:  ledgerSvc,
		batches: batches,
		entries: entries,
		svc:     svc,
	}
}

func storeLoc() ledger.LocationRef {
	return ledger.LocationRef{Type: ledger.LocationCentralStore, ID: id.MustParse("018f0000-0000-7000-8000-000000000001")}
}

func seedItem(t *testing.T, env *testEnv) *item.Item {
	t.Helper()

	it := item.NewItem("CBL-001", "Drop Cable", "cables", "M")
	require.NoError(t, env.items.Create(context.Background(), it))
	require.NoError(t, env.items.AddConversion(context.Background(), it.ID, "ROLL", "M",
		item.UomConversion{Factor: decimal.NewFromInt(100)}))
	return it
}

func TestPost_OpensBatches(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it := seedItem(t, env)

	doc := NewGoodsReceipt(storeLoc(), "INV-9041")
	doc.AddLine(it.ID, "LOT-A", types.NewQuantityFromFloat64(3), "ROLL", types.MustMoney("12"))
	doc.AddLine(it.ID, "LOT-B", types.NewQuantityFromFloat64(250), "M", types.MustMoney("11.5"))
	require.NoError(t, env.svc.Create(ctx, doc))
	assert.True(t, strings.HasPrefix(doc.Number, "GRN-"), "number = %s", doc.Number)

	posted, err := env.svc.Post(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, posted.Posted)

	// Each line opened a batch holding the base-unit quantity.
	require.NotNil(t, posted.Lines[0].BatchID)
	b1, err := env.batches.GetByID(ctx, *posted.Lines[0].BatchID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(300), b1.CurrentQty)
	assert.Equal(t, "LOT-A", b1.BatchNo)

	require.NotNil(t, posted.Lines[1].BatchID)
	b2, err := env.batches.GetByID(ctx, *posted.Lines[1].BatchID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(250), b2.CurrentQty)

	// Both opening entries share the document id and reference.
	journal, err := env.entries.ListByTransaction(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, journal, 2)
	for _, e := range journal {
		assert.Equal(t, ledger.TransactionReceipt, e.TransactionType)
		assert.Equal(t, posted.Number, e.ReferenceNo)
	}
}

func TestPost_Twice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it := seedItem(t, env)

	doc := NewGoodsReceipt(storeLoc(), "INV-9041")
	doc.AddLine(it.ID, "LOT-A", types.NewQuantityFromFloat64(1), "ROLL", types.MustMoney("12"))
	require.NoError(t, env.svc.Create(ctx, doc))

	_, err := env.svc.Post(ctx, doc.ID)
	require.NoError(t, err)

	_, err = env.svc.Post(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	it := seedItem(t, env)

	empty := NewGoodsReceipt(storeLoc(), "")
	err := env.svc.Create(ctx, empty)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	bad := NewGoodsReceipt(storeLoc(), "INV-1")
	bad.AddLine(it.ID, "", types.NewQuantityFromFloat64(1), "ROLL", types.MustMoney("12"))
	err = env.svc.Create(ctx, bad)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
