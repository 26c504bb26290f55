package receipt

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

// Service provides goods receipt operations.
type Service struct {
	repo    Repository
	items   *item.Service
	ledger  *ledger.Service
	txm     tx.Manager
	numbers issue.NumberGenerator
}

// NewService creates a new goods receipt service.
func NewService(repo Repository, items *item.Service, ledgerSvc *ledger.Service, txm tx.Manager, numbers issue.NumberGenerator) *Service {
	return &Service{
		repo:    repo,
		items:   items,
		ledger:  ledgerSvc,
		txm:     txm,
		numbers: numbers,
	}
}

// Create validates and persists a new goods receipt in draft state.
func (s *Service) Create(ctx context.Context, doc *GoodsReceipt) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		num, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("GRN"), nil, doc.Date)
		if err != nil {
			return fmt.Errorf("assign number: %w", err)
		}
		doc.Number = num
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}

	logger.Info(ctx, "goods receipt created",
		"receipt_id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines),
	)
	return nil
}

// Post opens one batch per line with its opening RECEIPT entry, all inside
// a single transaction. Quantities are converted to the item's base unit
// before the batch is created.
func (s *Service) Post(ctx context.Context, docID id.ID) (*GoodsReceipt, error) {
	var doc *GoodsReceipt

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Posted {
			return apperror.NewInvalidStateTransition("goods receipt", "posted", "post").
				WithDetail("receipt_id", docID.String())
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]

			res, err := s.items.ResolveConversion(ctx, line.ItemID, line.UOM)
			if err != nil {
				return err
			}
			baseQty := res.Apply(line.Quantity)
			if !baseQty.IsPositive() {
				return apperror.NewQuantityNonPositive(line.ID.String(), baseQty.String())
			}

			b := ledger.NewBatch(line.ItemID, line.BatchNo, doc.Location, baseQty, line.RatePerUnit)
			b.MfgDate = line.MfgDate
			b.ExpiryDate = line.ExpiryDate

			if _, err := s.ledger.CreateBatch(ctx, b, doc.ID, doc.Number); err != nil {
				return err
			}
			batchID := b.ID
			line.BatchID = &batchID
		}

		doc.Posted = true
		doc.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update receipt: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "goods receipt posted",
		"receipt_id", doc.ID,
		"number", doc.Number,
	)
	return doc, nil
}

// GetByID returns a goods receipt with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error) {
	return s.repo.GetByID(ctx, docID)
}

// List returns goods receipts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*GoodsReceipt, error) {
	return s.repo.List(ctx, filter)
}
