package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Engine produces exact compensating reversals for recorded transactions.
// All batch restorations and new entries of one reversal commit as a
// single atomic unit; partial reversal is never observable.
//
// The owning transaction's state (e.g. a PENDING issue) is checked by the
// caller; the engine itself guards against double reversal.
type Engine struct {
	ledger *Service
}

// NewEngine creates a reversal engine on top of the ledger service.
func NewEngine(ledger *Service) *Engine {
	return &Engine{ledger: ledger}
}

// ReversalScope restricts which of a transaction's entries are reversed.
// The zero scope covers the whole transaction. Scoping by (item, batch)
// restores only one approval item's share of a shared transaction id,
// leaving sibling items untouched.
type ReversalScope struct {
	ItemID  *id.ID
	BatchID *id.ID
}

func (sc ReversalScope) matches(e *Entry) bool {
	if sc.ItemID != nil && e.ItemID != *sc.ItemID {
		return false
	}
	if sc.BatchID != nil && e.BatchID != *sc.BatchID {
		return false
	}
	return true
}

// Reverse undoes every original entry of the transaction and appends
// compensating ADJUSTMENT entries. Idempotent at the transaction level:
// a second invocation fails with an invalid-state error.
//
// The idempotency check reads existing reversals before appending, so
// callers must serialize concurrent reversals of the same transaction.
// The approval service does this by holding the issue header row lock
// for the duration of the decision.
func (e *Engine) Reverse(ctx context.Context, txnID id.ID, reason string) ([]Entry, error) {
	return e.reverse(ctx, txnID, ReversalScope{}, reason)
}

// ReverseScoped undoes only the entries of one (item, batch) within the
// transaction.
func (e *Engine) ReverseScoped(ctx context.Context, txnID, itemID, batchID id.ID, reason string) ([]Entry, error) {
	return e.reverse(ctx, txnID, ReversalScope{ItemID: &itemID, BatchID: &batchID}, reason)
}

func (e *Engine) reverse(ctx context.Context, txnID id.ID, scope ReversalScope, reason string) ([]Entry, error) {
	if reason == "" {
		return nil, apperror.NewMissingRejectionReason()
	}

	var reversals []Entry
	err := e.ledger.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		all, err := e.ledger.entries.ListByTransaction(ctx, txnID)
		if err != nil {
			return err
		}

		var originals []Entry
		for _, entry := range all {
			if entry.IsReversal() {
				continue
			}
			// ADJUSTMENT entries that compensate this transaction carry
			// the same transaction id but are never re-reversed.
			if entry.TransactionType == TransactionAdjustment {
				continue
			}
			if scope.matches(&entry) {
				originals = append(originals, entry)
			}
		}
		if len(originals) == 0 {
			return apperror.NewNotFound("transaction entries", txnID.String())
		}

		existing, err := e.ledger.entries.ListReversalsOf(ctx, txnID)
		if err != nil {
			return err
		}
		for _, rev := range existing {
			if scope.matches(&rev) {
				return apperror.NewInvalidStateTransition(
					"transaction", "reversed", "reverse",
				).WithDetail("transaction_id", txnID.String())
			}
		}

		for i := range originals {
			orig := originals[i]

			// Role-swapped quantities: what went out comes back in.
			balanceValue := orig.BalanceValue.Neg()
			reversal, err := e.ledger.appendInTx(ctx, Movement{
				ItemID:          orig.ItemID,
				BatchID:         orig.BatchID,
				Location:        orig.Location,
				Type:            TransactionAdjustment,
				TransactionID:   orig.TransactionID,
				TransactionDate: time.Now().UTC(),
				QuantityIn:      orig.QuantityOut,
				QuantityOut:     orig.QuantityIn,
				RatePerUnit:     orig.RatePerUnit,
				ReferenceNo:     orig.ReferenceNo,
				Notes:           reason,
				SystemGenerated: true,
				ReversalOf:      &orig.ID,
				BalanceValue:    &balanceValue,
			})
			if err != nil {
				if apperror.HasCode(err, apperror.CodeInsufficientStock) {
					// Undoing a quantity_in below zero means the journal
					// and the batch store disagree.
					return apperror.NewLedgerInconsistent(
						"batch balance cannot absorb reversal",
					).WithCause(err).WithDetail("entry_id", orig.ID.String())
				}
				return err
			}
			reversals = append(reversals, *reversal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction reversed",
		"transaction_id", txnID,
		"entries", len(reversals),
		"scoped", scope.ItemID != nil,
	)
	return reversals, nil
}
