package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/receipt"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	receiptsTable     = "doc_goods_receipts"
	receiptLinesTable = "doc_goods_receipt_lines"
)

// receiptRow maps the receipts table; the location pair is flattened.
type receiptRow struct {
	receipt.GoodsReceipt
	LocationType ledger.LocationType `db:"location_type"`
	LocationID   id.ID               `db:"location_id"`
}

func (r receiptRow) toDoc() *receipt.GoodsReceipt {
	doc := r.GoodsReceipt
	doc.Location = ledger.LocationRef{Type: r.LocationType, ID: r.LocationID}
	return &doc
}

// receiptLineRow adds the parent document reference to the line mapping.
type receiptLineRow struct {
	receipt.Line
	ReceiptID id.ID `db:"receipt_id"`
}

var (
	receiptColumns     = postgres.ExtractDBColumns[receiptRow]()
	receiptLineColumns = postgres.ExtractDBColumns[receiptLineRow]()
)

// ReceiptRepo implements receipt.Repository.
type ReceiptRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ receipt.Repository = (*ReceiptRepo)(nil)

// NewReceiptRepo creates a new goods receipt repository.
func NewReceiptRepo(txm *postgres.TxManager) *ReceiptRepo {
	return &ReceiptRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReceiptRepo) headerMap(doc *receipt.GoodsReceipt) map[string]any {
	m := postgres.StructToMap(doc)
	m["location_type"] = doc.Location.Type
	m["location_id"] = doc.Location.ID
	return m
}

func (r *ReceiptRepo) Create(ctx context.Context, doc *receipt.GoodsReceipt) error {
	q := r.builder.Insert(receiptsTable).SetMap(r.headerMap(doc))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	return r.SaveLines(ctx, doc.ID, doc.Lines)
}

func (r *ReceiptRepo) GetByID(ctx context.Context, docID id.ID) (*receipt.GoodsReceipt, error) {
	return r.get(ctx, docID, false)
}

func (r *ReceiptRepo) GetForUpdate(ctx context.Context, docID id.ID) (*receipt.GoodsReceipt, error) {
	return r.get(ctx, docID, true)
}

func (r *ReceiptRepo) get(ctx context.Context, docID id.ID, forUpdate bool) (*receipt.GoodsReceipt, error) {
	q := r.builder.Select(receiptColumns...).
		From(receiptsTable).
		Where(squirrel.Eq{"id": docID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row receiptRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("goods receipt", docID.String())
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}

	doc := row.toDoc()
	doc.Lines, err = r.getLines(ctx, docID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *ReceiptRepo) Update(ctx context.Context, doc *receipt.GoodsReceipt) error {
	m := r.headerMap(doc)
	delete(m, "id")
	m["version"] = doc.Version + 1

	q := r.builder.Update(receiptsTable).
		SetMap(m).
		Where(squirrel.Eq{"id": doc.ID, "version": doc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("goods receipt was modified concurrently").
			WithDetail("receipt_id", doc.ID.String())
	}
	doc.Version++
	return nil
}

func (r *ReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []receipt.Line) error {
	deleteSQL, deleteArgs, err := r.builder.Delete(receiptLinesTable).
		Where(squirrel.Eq{"receipt_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	queries := []postgres.BatchQuery{{SQL: deleteSQL, Args: deleteArgs}}
	for _, line := range lines {
		m := postgres.StructToMap(line)
		m["receipt_id"] = docID

		insertSQL, insertArgs, err := r.builder.Insert(receiptLinesTable).SetMap(m).ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: insertSQL, Args: insertArgs})
	}

	if r.txm.GetTx(ctx) != nil {
		return postgres.NewBatchExecutor(r.txm).ExecuteBatch(ctx, queries)
	}

	querier := r.txm.GetQuerier(ctx)
	for _, q := range queries {
		if _, err := querier.Exec(ctx, q.SQL, q.Args...); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
	}
	return nil
}

func (r *ReceiptRepo) getLines(ctx context.Context, docID id.ID) ([]receipt.Line, error) {
	q := r.builder.Select(receiptLineColumns...).
		From(receiptLinesTable).
		Where(squirrel.Eq{"receipt_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []receiptLineRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}

	lines := make([]receipt.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.Line)
	}
	return lines, nil
}

func (r *ReceiptRepo) List(ctx context.Context, filter receipt.ListFilter) ([]*receipt.GoodsReceipt, error) {
	q := r.builder.Select(receiptColumns...).From(receiptsTable)

	if filter.Posted != nil {
		q = q.Where(squirrel.Eq{"posted": *filter.Posted})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	q = q.OrderBy("date DESC", "number DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []receiptRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select receipts: %w", err)
	}

	docs := make([]*receipt.GoodsReceipt, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDoc())
	}
	return docs, nil
}
