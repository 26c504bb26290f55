// Package document_repo provides PostgreSQL implementations for document
// repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	issuesTable     = "doc_material_issues"
	issueLinesTable = "doc_material_issue_lines"
)

// issueRow maps the issues table; both location pairs are flattened.
type issueRow struct {
	issue.MaterialIssue
	FromLocationType ledger.LocationType `db:"from_location_type"`
	FromLocationID   id.ID               `db:"from_location_id"`
	ToLocationType   ledger.LocationType `db:"to_location_type"`
	ToLocationID     id.ID               `db:"to_location_id"`
}

func (r issueRow) toDoc() *issue.MaterialIssue {
	doc := r.MaterialIssue
	doc.FromLocation = ledger.LocationRef{Type: r.FromLocationType, ID: r.FromLocationID}
	doc.ToLocation = ledger.LocationRef{Type: r.ToLocationType, ID: r.ToLocationID}
	return &doc
}

// issueLineRow adds the parent document reference to the line mapping.
type issueLineRow struct {
	issue.Line
	IssueID id.ID `db:"issue_id"`
}

var (
	issueColumns     = postgres.ExtractDBColumns[issueRow]()
	issueLineColumns = postgres.ExtractDBColumns[issueLineRow]()
)

// IssueRepo implements issue.Repository.
type IssueRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ issue.Repository = (*IssueRepo)(nil)

// NewIssueRepo creates a new material issue repository.
func NewIssueRepo(txm *postgres.TxManager) *IssueRepo {
	return &IssueRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *IssueRepo) headerMap(doc *issue.MaterialIssue) map[string]any {
	m := postgres.StructToMap(doc)
	m["from_location_type"] = doc.FromLocation.Type
	m["from_location_id"] = doc.FromLocation.ID
	m["to_location_type"] = doc.ToLocation.Type
	m["to_location_id"] = doc.ToLocation.ID
	return m
}

func (r *IssueRepo) Create(ctx context.Context, doc *issue.MaterialIssue) error {
	q := r.builder.Insert(issuesTable).SetMap(r.headerMap(doc))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}

	return r.SaveLines(ctx, doc.ID, doc.Lines)
}

func (r *IssueRepo) GetByID(ctx context.Context, docID id.ID) (*issue.MaterialIssue, error) {
	return r.get(ctx, docID, false)
}

// GetForUpdate locks the document header for the decision transaction, so
// concurrent approvals of the same issue serialize.
func (r *IssueRepo) GetForUpdate(ctx context.Context, docID id.ID) (*issue.MaterialIssue, error) {
	return r.get(ctx, docID, true)
}

func (r *IssueRepo) get(ctx context.Context, docID id.ID, forUpdate bool) (*issue.MaterialIssue, error) {
	q := r.builder.Select(issueColumns...).
		From(issuesTable).
		Where(squirrel.Eq{"id": docID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row issueRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("material issue", docID.String())
		}
		return nil, fmt.Errorf("get issue: %w", err)
	}

	doc := row.toDoc()
	doc.Lines, err = r.GetLines(ctx, docID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *IssueRepo) Update(ctx context.Context, doc *issue.MaterialIssue) error {
	m := r.headerMap(doc)
	delete(m, "id")
	m["version"] = doc.Version + 1

	q := r.builder.Update(issuesTable).
		SetMap(m).
		Where(squirrel.Eq{"id": doc.ID, "version": doc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("material issue was modified concurrently").
			WithDetail("issue_id", doc.ID.String())
	}
	doc.Version++
	return nil
}

// SaveLines replaces the line set. Delete plus reinsert runs as one batch
// round-trip inside the caller's transaction.
func (r *IssueRepo) SaveLines(ctx context.Context, docID id.ID, lines []issue.Line) error {
	deleteSQL, deleteArgs, err := r.builder.Delete(issueLinesTable).
		Where(squirrel.Eq{"issue_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	queries := []postgres.BatchQuery{{SQL: deleteSQL, Args: deleteArgs}}
	for _, line := range lines {
		m := postgres.StructToMap(line)
		m["issue_id"] = docID

		insertSQL, insertArgs, err := r.builder.Insert(issueLinesTable).SetMap(m).ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: insertSQL, Args: insertArgs})
	}

	if r.txm.GetTx(ctx) != nil {
		return postgres.NewBatchExecutor(r.txm).ExecuteBatch(ctx, queries)
	}

	// Outside a transaction, execute sequentially.
	querier := r.txm.GetQuerier(ctx)
	for _, q := range queries {
		if _, err := querier.Exec(ctx, q.SQL, q.Args...); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
	}
	return nil
}

func (r *IssueRepo) GetLines(ctx context.Context, docID id.ID) ([]issue.Line, error) {
	q := r.builder.Select(issueLineColumns...).
		From(issueLinesTable).
		Where(squirrel.Eq{"issue_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []issueLineRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}

	lines := make([]issue.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.Line)
	}
	return lines, nil
}

func (r *IssueRepo) List(ctx context.Context, filter issue.ListFilter) ([]*issue.MaterialIssue, error) {
	q := r.builder.Select(issueColumns...).From(issuesTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.FromLocation != nil {
		q = q.Where(squirrel.Eq{"from_location_id": *filter.FromLocation})
	}
	if filter.ToLocation != nil {
		q = q.Where(squirrel.Eq{"to_location_id": *filter.ToLocation})
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

	var rows []issueRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select issues: %w", err)
	}

	docs := make([]*issue.MaterialIssue, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDoc())
	}
	return docs, nil
}
