package issue

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
	"stockledger/pkg/numerator"
)

var hundred = decimal.NewFromInt(100)

// NumberGenerator issues sequential document numbers.
// Satisfied by *numerator.Service.
type NumberGenerator interface {
	GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error)
}

// Service provides material issue document operations.
type Service struct {
	repo    Repository
	items   *item.Service
	ledger  *ledger.Service
	txm     tx.Manager
	numbers NumberGenerator
}

// NewService creates a new material issue service.
func NewService(repo Repository, items *item.Service, ledgerSvc *ledger.Service, txm tx.Manager, numbers NumberGenerator) *Service {
	return &Service{
		repo:    repo,
		items:   items,
		ledger:  ledgerSvc,
		txm:     txm,
		numbers: numbers,
	}
}

// Create validates and persists a new material issue in draft state.
// Amounts are not computed until the document is posted.
func (s *Service) Create(ctx context.Context, doc *MaterialIssue) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		num, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("MI"), nil, doc.Date)
		if err != nil {
			return fmt.Errorf("assign number: %w", err)
		}
		doc.Number = num
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	logger.Info(ctx, "material issue created",
		"issue_id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines),
	)
	return nil
}

// Post decrements the source batches and writes one ISSUE entry per line,
// all inside a single transaction. Line amounts are computed here from the
// batch rate so the approval flow can later recompute proportionally.
func (s *Service) Post(ctx context.Context, docID id.ID) (*MaterialIssue, error) {
	var doc *MaterialIssue

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Posted {
			return apperror.NewInvalidStateTransition("material issue", "posted", "post").
				WithDetail("issue_id", docID.String())
		}
		if doc.IsTerminal() {
			return apperror.NewInvalidStateTransition("material issue", string(doc.Status), "post").
				WithDetail("issue_id", docID.String())
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]

			res, err := s.items.ResolveConversion(ctx, line.ItemID, line.OriginalUOM)
			if err != nil {
				return err
			}
			baseQty := res.Apply(line.OriginalQuantity)
			if !baseQty.IsPositive() {
				return apperror.NewQuantityNonPositive(line.ID.String(), baseQty.String())
			}

			batch, err := s.ledger.BatchByID(ctx, line.BatchID)
			if err != nil {
				return err
			}

			if _, err := s.ledger.AppendMovement(ctx, ledger.Movement{
				ItemID:          line.ItemID,
				BatchID:         line.BatchID,
				Location:        doc.FromLocation,
				Type:            ledger.TransactionIssue,
				TransactionID:   doc.ID,
				TransactionDate: doc.Date,
				QuantityOut:     baseQty,
				RatePerUnit:     batch.RatePerUnit,
				ReferenceNo:     doc.Number,
				Notes:           doc.Remarks,
			}); err != nil {
				return err
			}

			base := baseQty.Decimal().Mul(batch.RatePerUnit)
			gst := base.Mul(line.GSTPercentage).Div(hundred)
			line.OriginalBaseAmount = base
			line.OriginalGSTAmount = gst
			line.OriginalTotalAmount = base.Add(gst)
		}

		doc.Posted = true
		doc.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update issue: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "material issue posted",
		"issue_id", doc.ID,
		"number", doc.Number,
	)
	return doc, nil
}

// GetByID returns a material issue with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*MaterialIssue, error) {
	return s.repo.GetByID(ctx, docID)
}

// List returns material issues matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*MaterialIssue, error) {
	return s.repo.List(ctx, filter)
}
