// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	itemsTable       = "cat_items"
	conversionsTable = "cat_item_conversions"
)

var (
	itemColumns       = postgres.ExtractDBColumns[item.Item]()
	conversionColumns = postgres.ExtractDBColumns[item.UomConversion]()
)

// ItemRepo implements item.Repository.
type ItemRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ item.Repository = (*ItemRepo)(nil)

// NewItemRepo creates a new item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	q := r.builder.Insert(itemsTable).
		SetMap(postgres.StructToMap(it))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	for _, conv := range it.Conversions {
		if err := r.AddConversion(ctx, conv); err != nil {
			return err
		}
	}
	return nil
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	return r.getBy(ctx, squirrel.Eq{"id": itemID}, itemID.String())
}

func (r *ItemRepo) GetByCode(ctx context.Context, code string) (*item.Item, error) {
	return r.getBy(ctx, squirrel.Eq{"code": code}, code)
}

func (r *ItemRepo) getBy(ctx context.Context, cond squirrel.Eq, key string) (*item.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(cond)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var it item.Item
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &it, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", key)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	it.Conversions, err = r.GetConversions(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *ItemRepo) List(ctx context.Context, filter item.ListFilter) ([]*item.Item, error) {
	q := r.builder.Select(itemColumns...).From(itemsTable)

	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}

	q = q.OrderBy("code")

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

	var items []*item.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}

	for _, it := range items {
		it.Conversions, err = r.GetConversions(ctx, it.ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *ItemRepo) AddConversion(ctx context.Context, conv item.UomConversion) error {
	q := r.builder.Insert(conversionsTable).
		SetMap(postgres.StructToMap(conv))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

func (r *ItemRepo) GetConversions(ctx context.Context, itemID id.ID) ([]item.UomConversion, error) {
	q := r.builder.Select(conversionColumns...).
		From(conversionsTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("from_uom", "to_uom")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var convs []item.UomConversion
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &convs, sql, args...); err != nil {
		return nil, fmt.Errorf("select conversions: %w", err)
	}
	return convs, nil
}
