package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows over the COPY protocol. Journal
// appends go through it so a multi-line document costs one round trip.
// Both helpers require an open transaction in the context: bulk writes
// outside a transaction would bypass the atomicity the ledger relies on.
type BatchInserter struct {
	txm *TxManager
}

// NewBatchInserter creates a batch inserter bound to the tx manager.
func NewBatchInserter(txm *TxManager) *BatchInserter {
	return &BatchInserter{txm: txm}
}

// CopyFromSlice inserts rows into table via COPY. Each row must match
// columns positionally.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t := b.txm.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}
	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// BatchQuery is one statement in a pipelined batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// BatchExecutor pipelines several statements in one round trip using
// pgx.Batch. Document line rewrites (delete + reinsert) use it.
type BatchExecutor struct {
	txm *TxManager
}

// NewBatchExecutor creates a batch executor bound to the tx manager.
func NewBatchExecutor(txm *TxManager) *BatchExecutor {
	return &BatchExecutor{txm: txm}
}

// ExecuteBatch sends all queries and fails on the first error.
func (e *BatchExecutor) ExecuteBatch(ctx context.Context, queries []BatchQuery) error {
	t := e.txm.GetTx(ctx)
	if t == nil {
		return fmt.Errorf("ExecuteBatch requires transaction context")
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.SQL, q.Args...)
	}

	results := t.SendBatch(ctx, batch)
	defer results.Close()

	for range queries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch query failed: %w", err)
		}
	}
	return nil
}
