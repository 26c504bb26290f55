// Package tx declares the transaction boundary used by the domain
// services. They depend on these interfaces; the pgx implementation
// lives in infrastructure/storage/postgres.
package tx

import "context"

// Manager runs a function inside a database transaction: commit when
// fn returns nil, rollback otherwise. A nested call joins the
// transaction already carried by the context.
//
// Every batch mutation with its journal append, and every reversal or
// partial-accept decision set, goes through RunInTransaction so an
// observer never sees a balance without its journal entry.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions for query paths; writes
// inside ReadOnly fail at the database.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
