package ledger

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

// Service provides the batch ledger store and journal operations.
// Every mutation runs as one atomic unit: no observer ever sees a batch
// balance without its journal entry, or vice versa.
type Service struct {
	batches BatchRepository
	entries LedgerRepository
	txm     tx.Manager
}

// NewService creates a new ledger service.
func NewService(batches BatchRepository, entries LedgerRepository, txm tx.Manager) *Service {
	return &Service{
		batches: batches,
		entries: entries,
		txm:     txm,
	}
}

// CreateBatch registers a newly received lot together with its opening
// RECEIPT entry.
func (s *Service) CreateBatch(ctx context.Context, b *Batch, txnID id.ID, refNo string) (*Entry, error) {
	if err := b.Validate(ctx); err != nil {
		return nil, err
	}
	if !b.CurrentQty.IsPositive() {
		return nil, apperror.NewValidation("opening quantity must be positive").
			WithDetail("batch_no", b.BatchNo)
	}

	openingQty := b.CurrentQty
	var entry *Entry

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// The batch row is created empty so the RECEIPT movement is the
		// single source of its opening balance.
		b.CurrentQty = 0
		if err := s.batches.Create(ctx, b); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		var err error
		entry, err = s.appendInTx(ctx, Movement{
			ItemID:          b.ItemID,
			BatchID:         b.ID,
			Location:        b.Location,
			Type:            TransactionReceipt,
			TransactionID:   txnID,
			TransactionDate: time.Now().UTC(),
			QuantityIn:      openingQty,
			RatePerUnit:     b.RatePerUnit,
			ReferenceNo:     refNo,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	b.CurrentQty = openingQty
	logger.Info(ctx, "batch created",
		"batch_id", b.ID,
		"item_id", b.ItemID,
		"batch_no", b.BatchNo,
		"qty", openingQty.String(),
	)
	return entry, nil
}

// AppendMovement applies one movement: the batch balance mutation and the
// journal append commit together or not at all.
func (s *Service) AppendMovement(ctx context.Context, m Movement) (*Entry, error) {
	var entry *Entry
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.appendInTx(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// appendInTx performs the locked balance mutation plus journal append.
// Must be called inside a transaction.
func (s *Service) appendInTx(ctx context.Context, m Movement) (*Entry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	batch, err := s.batches.GetForUpdate(ctx, m.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.ItemID != m.ItemID {
		return nil, apperror.NewValidation("batch does not belong to item").
			WithDetail("batch_id", m.BatchID.String()).
			WithDetail("item_id", m.ItemID.String())
	}

	var newBalance types.Quantity
	if m.QuantityOut.IsPositive() {
		if batch.CurrentQty < m.QuantityOut {
			return nil, apperror.NewInsufficientStock(
				batch.ID.String(),
				m.QuantityOut.String(),
				batch.CurrentQty.String(),
			)
		}
		newBalance = batch.CurrentQty - m.QuantityOut
	} else {
		// Increments always succeed; no upper bound is enforced.
		newBalance = batch.CurrentQty + m.QuantityIn
	}

	if err := s.batches.UpdateQuantity(ctx, batch.ID, newBalance); err != nil {
		return nil, fmt.Errorf("update batch quantity: %w", err)
	}

	balanceValue := newBalance.Decimal().Mul(m.RatePerUnit)
	if m.BalanceValue != nil {
		balanceValue = *m.BalanceValue
	}

	txnDate := m.TransactionDate
	if txnDate.IsZero() {
		txnDate = time.Now().UTC()
	}

	entry := &Entry{
		ID:              id.New(),
		ItemID:          m.ItemID,
		BatchID:         m.BatchID,
		Location:        m.Location,
		TransactionType: m.Type,
		TransactionID:   m.TransactionID,
		TransactionDate: txnDate,
		QuantityIn:      m.QuantityIn,
		QuantityOut:     m.QuantityOut,
		BalanceQuantity: newBalance,
		RatePerUnit:     m.RatePerUnit,
		BalanceValue:    balanceValue,
		AuditInfo:       auditFromContext(ctx),
		ReferenceNo:     m.ReferenceNo,
		Notes:           m.Notes,
		SystemGenerated: m.SystemGenerated,
		ReversalOf:      m.ReversalOf,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}

	logger.Debug(ctx, "movement appended",
		"entry_id", entry.ID,
		"batch_id", entry.BatchID,
		"type", string(entry.TransactionType),
		"balance", newBalance.String(),
	)
	return entry, nil
}

// auditFromContext stamps audit metadata from the request context.
func auditFromContext(ctx context.Context) AuditInfo {
	actor := appctx.GetActor(ctx)
	if actor == nil {
		return AuditInfo{CreatedBy: "system"}
	}
	return AuditInfo{
		CreatedBy: actor.UserID,
		UserRole:  actor.Role,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		SessionID: actor.SessionID,
	}
}

// BatchByID returns one batch.
func (s *Service) BatchByID(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.batches.GetByID(ctx, batchID)
}

// Batches lists batches by filter.
func (s *Service) Batches(ctx context.Context, filter BatchFilter) ([]*Batch, error) {
	return s.batches.List(ctx, filter)
}

// EntriesByTransaction returns all journal entries for a transaction.
func (s *Service) EntriesByTransaction(ctx context.Context, txnID id.ID) ([]Entry, error) {
	return s.entries.ListByTransaction(ctx, txnID)
}

// EntriesByBatch returns the movement history of one (item, batch).
func (s *Service) EntriesByBatch(ctx context.Context, itemID, batchID id.ID, filter EntryFilter) ([]Entry, error) {
	return s.entries.ListByBatch(ctx, itemID, batchID, filter)
}
