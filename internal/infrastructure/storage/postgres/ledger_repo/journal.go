package ledger_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const entriesTable = "stk_ledger_entries"

// entryRow maps the journal table; the location pair is flattened.
type entryRow struct {
	ledger.Entry
	LocationType ledger.LocationType `db:"location_type"`
	LocationID   id.ID               `db:"location_id"`
}

func (r entryRow) toEntry() ledger.Entry {
	e := r.Entry
	e.Location = ledger.LocationRef{Type: r.LocationType, ID: r.LocationID}
	return e
}

var entryColumns = postgres.ExtractDBColumns[entryRow]()

// JournalRepo implements ledger.LedgerRepository. The table is append-only;
// this type deliberately has no update or delete methods.
type JournalRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ ledger.LedgerRepository = (*JournalRepo)(nil)

// NewJournalRepo creates a new journal repository.
func NewJournalRepo(txm *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func entryValues(e *ledger.Entry) []any {
	return []any{
		e.ID, e.ItemID, e.BatchID, e.Location.Type, e.Location.ID,
		e.TransactionType, e.TransactionID, e.TransactionDate,
		e.QuantityIn, e.QuantityOut, e.BalanceQuantity,
		e.RatePerUnit, e.BalanceValue,
		e.CreatedBy, e.UserRole, e.IPAddress, e.UserAgent, e.SessionID,
		e.ReferenceNo, e.Notes, e.SystemGenerated, e.ReversalOf, e.CreatedAt,
	}
}

var entryInsertColumns = []string{
	"id", "item_id", "batch_id", "location_type", "location_id",
	"transaction_type", "transaction_id", "transaction_date",
	"quantity_in", "quantity_out", "balance_quantity",
	"rate_per_unit", "balance_value",
	"created_by", "user_role", "ip_address", "user_agent", "session_id",
	"reference_no", "notes", "system_generated", "reversal_of", "created_at",
}

func (r *JournalRepo) Append(ctx context.Context, e *ledger.Entry) error {
	q := r.builder.Insert(entriesTable).
		Columns(entryInsertColumns...).
		Values(entryValues(e)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// BulkAppend inserts many entries via COPY. Used by data imports; requires
// a transaction context.
func (r *JournalRepo) BulkAppend(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	inserter := postgres.NewBatchInserter(r.txm)
	rows := make([][]any, 0, len(entries))
	for i := range entries {
		rows = append(rows, entryValues(&entries[i]))
	}
	if _, err := inserter.CopyFromSlice(ctx, entriesTable, entryInsertColumns, rows); err != nil {
		return fmt.Errorf("copy entries: %w", err)
	}
	return nil
}

func (r *JournalRepo) GetByID(ctx context.Context, entryID id.ID) (*ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"id": entryID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row entryRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger entry", entryID.String())
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	e := row.toEntry()
	return &e, nil
}

func (r *JournalRepo) ListByTransaction(ctx context.Context, txnID id.ID) ([]ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"transaction_id": txnID}).
		OrderBy("created_at", "id")

	return r.selectEntries(ctx, q)
}

func (r *JournalRepo) ListByBatch(ctx context.Context, itemID, batchID id.ID, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"item_id": itemID, "batch_id": batchID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"transaction_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"transaction_date": *filter.ToDate})
	}

	q = q.OrderBy("created_at", "id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectEntries(ctx, q)
}

// ListReversalsOf returns entries compensating any entry of the given
// transaction.
func (r *JournalRepo) ListReversalsOf(ctx context.Context, txnID id.ID) ([]ledger.Entry, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE reversal_of IN (
			SELECT id FROM %s
			WHERE transaction_id = $1 AND reversal_of IS NULL
		)
		ORDER BY created_at, id
	`, strings.Join(entryColumns, ", "), entriesTable, entriesTable)

	var rows []entryRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, txnID); err != nil {
		return nil, fmt.Errorf("select reversals: %w", err)
	}

	entries := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

func (r *JournalRepo) selectEntries(ctx context.Context, q squirrel.SelectBuilder) ([]ledger.Entry, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []entryRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	entries := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}
