// Package ledger_repo provides PostgreSQL implementations for the batch
// store and the stock ledger journal.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const batchesTable = "stk_batches"

// batchRow maps the batches table; the location pair is flattened.
type batchRow struct {
	ledger.Batch
	LocationType ledger.LocationType `db:"location_type"`
	LocationID   id.ID               `db:"location_id"`
}

func (r batchRow) toBatch() *ledger.Batch {
	b := r.Batch
	b.Location = ledger.LocationRef{Type: r.LocationType, ID: r.LocationID}
	return &b
}

var batchColumns = postgres.ExtractDBColumns[batchRow]()

// BatchRepo implements ledger.BatchRepository.
type BatchRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ ledger.BatchRepository = (*BatchRepo)(nil)

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txm *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BatchRepo) Create(ctx context.Context, b *ledger.Batch) error {
	q := r.builder.Insert(batchesTable).
		Columns(
			"id", "item_id", "batch_no", "location_type", "location_id",
			"current_qty", "rate_per_unit", "mfg_date", "expiry_date",
			"created_at", "updated_at", "version",
		).
		Values(
			b.ID, b.ItemID, b.BatchNo, b.Location.Type, b.Location.ID,
			b.CurrentQty, b.RatePerUnit, b.MfgDate, b.ExpiryDate,
			b.CreatedAt, b.UpdatedAt, b.Version,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	return r.get(ctx, batchID, false)
}

// GetForUpdate locks the batch row for the duration of the transaction.
func (r *BatchRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	return r.get(ctx, batchID, true)
}

func (r *BatchRepo) get(ctx context.Context, batchID id.ID, forUpdate bool) (*ledger.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row batchRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return row.toBatch(), nil
}

// UpdateQuantity persists the caller-computed balance. A database check
// constraint backs up the non-negative invariant.
func (r *BatchRepo) UpdateQuantity(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	if qty.IsNegative() {
		return apperror.NewLedgerInconsistent("batch quantity would go negative").
			WithDetail("batch_id", batchID.String())
	}

	q := r.builder.Update(batchesTable).
		Set("current_qty", qty).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

func (r *BatchRepo) buildList(filter ledger.BatchFilter) squirrel.SelectBuilder {
	q := r.builder.Select(batchColumns...).From(batchesTable)

	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.LocationType != nil {
		q = q.Where(squirrel.Eq{"location_type": *filter.LocationType})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"current_qty": int64(0)})
	}

	q = q.OrderBy("batch_no")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *BatchRepo) List(ctx context.Context, filter ledger.BatchFilter) ([]*ledger.Batch, error) {
	sql, args, err := r.buildList(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []batchRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}

	batches := make([]*ledger.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, row.toBatch())
	}
	return batches, nil
}
