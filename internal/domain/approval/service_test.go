package approval

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/ledger"
)

type fixture struct {
	items    *item.Service
	ledger   *ledger.Service
	batches  *ledger.MemoryBatchRepository
	entries  *ledger.MemoryLedgerRepository
	issues   *issue.MemoryRepository
	issueSvc *issue.Service
	approval *Service
}

func newFixture() *fixture {
	txm := ledger.NewMemoryTxManager()
	items := item.NewService(item.NewMemoryRepository())
	batches := ledger.NewMemoryBatchRepository()
	entries := ledger.NewMemoryLedgerRepository()
	ledgerSvc := ledger.NewService(batches, entries, txm)
	engine := ledger.NewEngine(ledgerSvc)
	issues := issue.NewMemoryRepository()
	issueSvc := issue.NewService(issues, items, ledgerSvc, txm, issue.NewMemoryNumberGenerator())
	approvalSvc := NewService(issues, items, ledgerSvc, engine, txm, nil)

	return &fixture{
		items:    items,
		ledger:   ledgerSvc,
		batches:  batches,
		entries:  entries,
		issues:   issues,
		issueSvc: issueSvc,
		approval: approvalSvc,
	}
}

func approverCtx() context.Context {
	return appctx.WithActor(context.Background(), &appctx.Actor{
		UserID: "mgr-7",
		Role:   "store_manager",
	})
}

func centralStore() ledger.LocationRef {
	return ledger.LocationRef{Type: ledger.LocationCentralStore, ID: id.MustParse("018f0000-0000-7000-8000-000000000001")}
}

func technician() ledger.LocationRef {
	return ledger.LocationRef{Type: ledger.LocationTechnician, ID: id.MustParse("018f0000-0000-7000-8000-000000000002")}
}

// cableItem is sold in milliliters, issued in liters: 1 L = 1000 ML.
func cableItem(t *testing.T, f *fixture, code string) *item.Item {
	t.Helper()

	it := item.NewItem(code, "Jointing Compound", "consumables", "ML")
	require.NoError(t, f.items.Create(context.Background(), it))
	require.NoError(t, f.items.AddConversion(context.Background(), it.ID, "L", "ML",
		item.UomConversion{Factor: decimal.NewFromInt(1000)}))
	return it
}

func newBatch(t *testing.T, f *fixture, itemID id.ID, qtyML float64, rate string) *ledger.Batch {
	t.Helper()

	b := ledger.NewBatch(itemID, "LOT-"+itemID.String()[:8], centralStore(),
		types.NewQuantityFromFloat64(qtyML), types.MustMoney(rate))
	_, err := f.ledger.CreateBatch(context.Background(), b, id.New(), "GRN-001")
	require.NoError(t, err)
	return b
}

type issueLine struct {
	itemID  id.ID
	batchID id.ID
	qty     float64
	uom     string
	gstPct  string
}

func postIssue(t *testing.T, f *fixture, lines ...issueLine) *issue.MaterialIssue {
	t.Helper()
	ctx := approverCtx()

	doc := issue.NewMaterialIssue(centralStore(), technician())
	for _, l := range lines {
		doc.AddLine(l.itemID, l.batchID, types.NewQuantityFromFloat64(l.qty), l.uom, types.MustMoney(l.gstPct))
	}
	require.NoError(t, f.issueSvc.Create(ctx, doc))

	posted, err := f.issueSvc.Post(ctx, doc.ID)
	require.NoError(t, err)
	return posted
}

func batchQty(t *testing.T, f *fixture, batchID id.ID) types.Quantity {
	t.Helper()

	b, err := f.batches.GetByID(context.Background(), batchID)
	require.NoError(t, err)
	return b.CurrentQty
}

func reversalCount(t *testing.T, f *fixture, txnID id.ID) int {
	t.Helper()

	all, err := f.entries.ListByTransaction(context.Background(), txnID)
	require.NoError(t, err)
	n := 0
	for _, e := range all {
		if e.IsReversal() {
			n++
		}
	}
	return n
}

func TestApprove_CopiesOriginals(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")

	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})

	// Posting consumed 10 L = 10000 ML at rate 2.
	assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b.ID))
	line := doc.Lines[0]
	assert.True(t, line.OriginalBaseAmount.Equal(types.MustMoney("20000")))
	assert.True(t, line.OriginalGSTAmount.Equal(types.MustMoney("3600")))
	assert.True(t, line.OriginalTotalAmount.Equal(types.MustMoney("23600")))

	decided, err := f.approval.Approve(approverCtx(), doc.ID, "looks right")
	require.NoError(t, err)

	assert.Equal(t, issue.StatusApproved, decided.Status)
	assert.Equal(t, "mgr-7", decided.ApprovedBy)
	require.NotNil(t, decided.ApprovedAt)

	got := decided.Lines[0]
	assert.Equal(t, issue.ItemApproved, got.Status)
	require.NotNil(t, got.ApprovedQuantity)
	assert.Equal(t, got.OriginalQuantity, *got.ApprovedQuantity)
	assert.Equal(t, "L", got.ApprovedUOM)
	assert.True(t, got.ApprovedBaseAmount.Equal(got.OriginalBaseAmount))
	assert.True(t, got.ApprovedGSTAmount.Equal(got.OriginalGSTAmount))
	assert.True(t, got.ApprovedTotalAmount.Equal(got.OriginalTotalAmount))

	// Approval moves no stock.
	assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b.ID))
	assert.Equal(t, 0, reversalCount(t, f, doc.ID))
}

func TestReject_RestoresStock(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")

	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})
	require.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b.ID))

	decided, err := f.approval.Reject(approverCtx(), doc.ID, "wrong batch picked", "")
	require.NoError(t, err)

	assert.Equal(t, issue.StatusRejected, decided.Status)
	assert.Equal(t, "wrong batch picked", decided.RejectionReason)
	assert.Equal(t, issue.ItemRejected, decided.Lines[0].Status)
	assert.Nil(t, decided.Lines[0].ApprovedQuantity)

	assert.Equal(t, types.NewQuantityFromFloat64(20000), batchQty(t, f, b.ID))
	assert.Equal(t, 1, reversalCount(t, f, doc.ID))
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})

	_, err := f.approval.Reject(approverCtx(), doc.ID, "   ", "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingRejectionReason))

	// Document untouched.
	got, err := f.issues.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.StatusPending, got.Status)
	assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b.ID))
}

func TestPartialAccept_MixedDecisions(t *testing.T) {
	f := newFixture()
	ctx := approverCtx()

	it1 := cableItem(t, f, "CMP-001")
	it2 := cableItem(t, f, "CMP-002")
	it3 := cableItem(t, f, "CMP-003")
	b1 := newBatch(t, f, it1.ID, 20000, "2")
	b2 := newBatch(t, f, it2.ID, 20000, "2")
	b3 := newBatch(t, f, it3.ID, 20000, "2")

	doc := postIssue(t, f,
		issueLine{it1.ID, b1.ID, 10, "L", "18"},
		issueLine{it2.ID, b2.ID, 10, "L", "18"},
		issueLine{it3.ID, b3.ID, 10, "L", "18"},
	)

	decided, err := f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: types.NewQuantityFromFloat64(10), ApprovedUOM: "L"},
		{LineID: doc.Lines[1].ID, Approve: true, ApprovedQuantity: types.NewQuantityFromFloat64(4), ApprovedUOM: "L"},
		{LineID: doc.Lines[2].ID, Approve: false, Reason: "damaged on arrival"},
	}, "split decision")
	require.NoError(t, err)

	assert.Equal(t, issue.StatusPartial, decided.Status)
	assert.Equal(t, issue.ItemApproved, decided.Lines[0].Status)
	assert.Equal(t, issue.ItemApproved, decided.Lines[1].Status)
	assert.Equal(t, issue.ItemRejected, decided.Lines[2].Status)

	// Only the rejected line's batch is restored.
	assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b1.ID))
	assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b2.ID))
	assert.Equal(t, types.NewQuantityFromFloat64(20000), batchQty(t, f, b3.ID))
	assert.Equal(t, 1, reversalCount(t, f, doc.ID))
}

// Amount law: approved base amount = approved qty in base units × batch rate,
// GST and total follow from the line's captured percentage.
func TestPartialAccept_AmountsFromBatchRate(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")

	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})

	decided, err := f.approval.PartialAccept(approverCtx(), doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: types.NewQuantityFromFloat64(4), ApprovedUOM: "L"},
	}, "")
	require.NoError(t, err)

	line := decided.Lines[0]
	require.NotNil(t, line.ApprovedBaseAmount)
	// 4 L = 4000 ML × ₹2 = ₹8000; GST 18% = ₹1440; total ₹9440.
	assert.True(t, line.ApprovedBaseAmount.Equal(types.MustMoney("8000")),
		"base = %s", line.ApprovedBaseAmount)
	assert.True(t, line.ApprovedGSTAmount.Equal(types.MustMoney("1440")),
		"gst = %s", line.ApprovedGSTAmount)
	assert.True(t, line.ApprovedTotalAmount.Equal(types.MustMoney("9440")),
		"total = %s", line.ApprovedTotalAmount)

	assert.Equal(t, issue.StatusApproved, decided.Status)
}

func TestPartialAccept_QuantityBounds(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})
	ctx := approverCtx()

	cases := []struct {
		name string
		qty  float64
		code string
	}{
		{"zero", 0, apperror.CodeQuantityNonPositive},
		{"negative", -1, apperror.CodeQuantityNonPositive},
		{"exceeds original", 10.5, apperror.CodeQuantityExceedsOriginal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.approval.PartialAccept(ctx, doc.ID, []Decision{
				{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: types.NewQuantityFromFloat64(tc.qty), ApprovedUOM: "L"},
			}, "")
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tc.code), "got %v", err)

			// Nothing mutated.
			got, err := f.issues.GetByID(context.Background(), doc.ID)
			require.NoError(t, err)
			assert.Equal(t, issue.StatusPending, got.Status)
			assert.Equal(t, issue.ItemPending, got.Lines[0].Status)
			assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b.ID))
		})
	}

	// Exactly the original quantity is allowed.
	decided, err := f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: types.NewQuantityFromFloat64(10), ApprovedUOM: "L"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, issue.StatusApproved, decided.Status)
}

// An approved quantity given in a different unit is bounded in base units.
func TestPartialAccept_BoundCheckedAcrossUnits(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})

	// 10000 ML == 10 L: allowed.
	decided, err := f.approval.PartialAccept(approverCtx(), doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: types.NewQuantityFromFloat64(10000), ApprovedUOM: "ML"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, issue.StatusApproved, decided.Status)
	assert.True(t, decided.Lines[0].ApprovedBaseAmount.Equal(types.MustMoney("20000")))
}

func TestPartialAccept_IncompleteDecisionSet(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b1 := newBatch(t, f, it.ID, 20000, "2")
	b2 := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f,
		issueLine{it.ID, b1.ID, 5, "L", "18"},
		issueLine{it.ID, b2.ID, 5, "L", "18"},
	)
	ctx := approverCtx()

	full := types.NewQuantityFromFloat64(5)

	// Missing a line.
	_, err := f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: full, ApprovedUOM: "L"},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIncompleteDecisionSet))

	// Duplicate decision for one line.
	_, err = f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: full, ApprovedUOM: "L"},
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: full, ApprovedUOM: "L"},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIncompleteDecisionSet))

	// Unknown line id.
	_, err = f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: full, ApprovedUOM: "L"},
		{LineID: id.New(), Approve: true, ApprovedQuantity: full, ApprovedUOM: "L"},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIncompleteDecisionSet))

	// Rejection without a reason.
	_, err = f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: true, ApprovedQuantity: full, ApprovedUOM: "L"},
		{LineID: doc.Lines[1].ID, Approve: false},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingRejectionReason))

	// Document stayed pending through all failed attempts.
	got, err := f.issues.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.StatusPending, got.Status)
	assert.Equal(t, 0, reversalCount(t, f, doc.ID))
}

func TestPartialAccept_AllRejectedJoinsReasons(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b1 := newBatch(t, f, it.ID, 20000, "2")
	b2 := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f,
		issueLine{it.ID, b1.ID, 5, "L", "18"},
		issueLine{it.ID, b2.ID, 5, "L", "18"},
	)

	decided, err := f.approval.PartialAccept(approverCtx(), doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: false, Reason: "expired"},
		{LineID: doc.Lines[1].ID, Approve: false, Reason: "not needed"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, issue.StatusRejected, decided.Status)
	assert.Equal(t, "expired; not needed", decided.RejectionReason)
	assert.Equal(t, types.NewQuantityFromFloat64(20000), batchQty(t, f, b1.ID))
	assert.Equal(t, types.NewQuantityFromFloat64(20000), batchQty(t, f, b2.ID))
}

func TestDecide_TerminalStateIsFinal(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})
	ctx := approverCtx()

	_, err := f.approval.Approve(ctx, doc.ID, "")
	require.NoError(t, err)

	_, err = f.approval.Reject(ctx, doc.ID, "changed my mind", "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))

	_, err = f.approval.PartialAccept(ctx, doc.ID, []Decision{
		{LineID: doc.Lines[0].ID, Approve: false, Reason: "late"},
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))

	_, err = f.approval.Approve(ctx, doc.ID, "again")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))

	// Stock remains as the first decision left it.
	assert.Equal(t, types.NewQuantityFromFloat64(10000), batchQty(t, f, b.ID))
}

func TestDecide_UnpostedDraft(t *testing.T) {
	f := newFixture()
	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")
	ctx := approverCtx()

	doc := issue.NewMaterialIssue(centralStore(), technician())
	doc.AddLine(it.ID, b.ID, types.NewQuantityFromFloat64(10), "L", types.MustMoney("18"))
	require.NoError(t, f.issueSvc.Create(ctx, doc))

	_, err := f.approval.Approve(ctx, doc.ID, "")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStateTransition))
}

type capturingRecorder struct {
	records []*DecisionRecord
}

func (c *capturingRecorder) Record(ctx context.Context, rec *DecisionRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func TestDecisions_AreRecorded(t *testing.T) {
	f := newFixture()
	rec := &capturingRecorder{}
	f.approval.recorder = rec

	it := cableItem(t, f, "CMP-001")
	b := newBatch(t, f, it.ID, 20000, "2")
	doc := postIssue(t, f, issueLine{it.ID, b.ID, 10, "L", "18"})

	_, err := f.approval.Approve(approverCtx(), doc.ID, "ok")
	require.NoError(t, err)

	require.Len(t, rec.records, 1)
	assert.Equal(t, actionApprove, rec.records[0].Action)
	assert.Equal(t, doc.ID, rec.records[0].IssueID)
	assert.Equal(t, issue.StatusApproved, rec.records[0].Status)
	assert.Equal(t, "mgr-7", rec.records[0].DecidedBy)
	assert.Len(t, rec.records[0].Lines, 1)
}
