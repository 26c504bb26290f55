// Package approval implements the material issue decision workflow:
// full approval, full rejection with stock reversal, and line-level
// partial acceptance.
package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// Decision is the approver's verdict on one issue line.
type Decision struct {
	LineID  id.ID
	Approve bool

	// ApprovedQuantity and ApprovedUOM apply to approvals only.
	// ApprovedUOM defaults to the line's original unit.
	ApprovedQuantity types.Quantity
	ApprovedUOM      string

	// Reason is mandatory for rejected lines.
	Reason string
}

// DecisionRecord is the audit snapshot written after a decision commits.
type DecisionRecord struct {
	IssueID   id.ID        `json:"issue_id"`
	Number    string       `json:"number"`
	Action    string       `json:"action"`
	Status    issue.Status `json:"status"`
	DecidedBy string       `json:"decided_by"`
	DecidedAt time.Time    `json:"decided_at"`
	Remarks   string       `json:"remarks,omitempty"`
	Lines     []issue.Line `json:"lines"`
}

// DecisionRecorder persists decision snapshots for audit.
type DecisionRecorder interface {
	Record(ctx context.Context, rec *DecisionRecord) error
}

var hundred = decimal.NewFromInt(100)

const (
	actionApprove       = "APPROVE"
	actionReject        = "REJECT"
	actionPartialAccept = "PARTIAL_ACCEPT"
)

// Service applies approval decisions to posted material issues.
// Every decision is applied exactly once: the document transitions out of
// PENDING atomically with its line updates and any stock reversals.
type Service struct {
	issues   issue.Repository
	items    *item.Service
	ledger   *ledger.Service
	engine   *ledger.Engine
	txm      tx.Manager
	recorder DecisionRecorder
}

// NewService creates a new approval service. The recorder may be nil.
func NewService(issues issue.Repository, items *item.Service, ledgerSvc *ledger.Service, engine *ledger.Engine, txm tx.Manager, recorder DecisionRecorder) *Service {
	return &Service{
		issues:   issues,
		items:    items,
		ledger:   ledgerSvc,
		engine:   engine,
		txm:      txm,
		recorder: recorder,
	}
}

// Approve accepts every line as issued. No stock movement is needed: the
// posted quantities stand, and each line's approved values are copied from
// its originals.
func (s *Service) Approve(ctx context.Context, issueID id.ID, remarks string) (*issue.MaterialIssue, error) {
	var doc *issue.MaterialIssue

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.issues.GetForUpdate(ctx, issueID)
		if err != nil {
			return err
		}
		if err := doc.CanDecide(); err != nil {
			return err
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]
			qty := line.OriginalQuantity
			base := line.OriginalBaseAmount
			gst := line.OriginalGSTAmount
			total := line.OriginalTotalAmount

			line.ApprovedQuantity = &qty
			line.ApprovedUOM = line.OriginalUOM
			line.ApprovedBaseAmount = &base
			line.ApprovedGSTAmount = &gst
			line.ApprovedTotalAmount = &total
			line.Status = issue.ItemApproved
		}

		s.stampDecision(ctx, doc, issue.StatusApproved, remarks)
		return s.persist(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, doc, actionApprove, remarks)
	logger.Info(ctx, "material issue approved", "issue_id", doc.ID, "number", doc.Number)
	return doc, nil
}

// Reject refuses the whole issue and reverses every stock movement it
// posted. The reason is mandatory and becomes the reversal note.
func (s *Service) Reject(ctx context.Context, issueID id.ID, reason, remarks string) (*issue.MaterialIssue, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperror.NewMissingRejectionReason()
	}

	var doc *issue.MaterialIssue

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.issues.GetForUpdate(ctx, issueID)
		if err != nil {
			return err
		}
		if err := doc.CanDecide(); err != nil {
			return err
		}

		if _, err := s.engine.Reverse(ctx, doc.ID, reason); err != nil {
			return err
		}

		for i := range doc.Lines {
			doc.Lines[i].Status = issue.ItemRejected
		}

		doc.RejectionReason = reason
		s.stampDecision(ctx, doc, issue.StatusRejected, remarks)
		return s.persist(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, doc, actionReject, remarks)
	logger.Info(ctx, "material issue rejected", "issue_id", doc.ID, "number", doc.Number)
	return doc, nil
}

// lineVerdict is a fully validated decision, resolved against the line it
// targets, ready to apply.
type lineVerdict struct {
	line     *issue.Line
	decision Decision
	baseQty  types.Quantity
}

// PartialAccept applies a per-line decision set. The set must cover every
// line exactly once. All decisions are validated before any mutation, so a
// bad set leaves the document and the ledger untouched. Rejected lines get
// a scoped reversal restoring only their own batch.
func (s *Service) PartialAccept(ctx context.Context, issueID id.ID, decisions []Decision, remarks string) (*issue.MaterialIssue, error) {
	var doc *issue.MaterialIssue

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.issues.GetForUpdate(ctx, issueID)
		if err != nil {
			return err
		}
		if err := doc.CanDecide(); err != nil {
			return err
		}

		verdicts, err := s.validateDecisions(ctx, doc, decisions)
		if err != nil {
			return err
		}

		var rejectionReasons []string
		for _, v := range verdicts {
			if v.decision.Approve {
				if err := s.applyApproval(ctx, v); err != nil {
					return err
				}
				continue
			}

			if _, err := s.engine.ReverseScoped(ctx, doc.ID, v.line.ItemID, v.line.BatchID, v.decision.Reason); err != nil {
				return err
			}
			v.line.Status = issue.ItemRejected
			rejectionReasons = append(rejectionReasons, v.decision.Reason)
		}

		status := issue.AggregateStatus(doc.Lines)
		if status == issue.StatusRejected {
			doc.RejectionReason = strings.Join(rejectionReasons, "; ")
		}
		s.stampDecision(ctx, doc, status, remarks)
		return s.persist(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, doc, actionPartialAccept, remarks)
	logger.Info(ctx, "material issue partially accepted",
		"issue_id", doc.ID,
		"number", doc.Number,
		"status", string(doc.Status),
	)
	return doc, nil
}

// validateDecisions checks the decision set against the document before
// anything is mutated: full line coverage, no duplicates, positive approved
// quantities within the original, resolvable units, mandatory rejection
// reasons.
func (s *Service) validateDecisions(ctx context.Context, doc *issue.MaterialIssue, decisions []Decision) ([]lineVerdict, error) {
	if len(decisions) != len(doc.Lines) {
		return nil, apperror.NewIncompleteDecisionSet(
			fmt.Sprintf("decision set has %d entries for %d lines", len(decisions), len(doc.Lines)),
		).WithDetail("issue_id", doc.ID.String())
	}

	seen := make(map[id.ID]bool, len(decisions))
	verdicts := make([]lineVerdict, 0, len(decisions))

	for _, d := range decisions {
		line := doc.LineByID(d.LineID)
		if line == nil {
			return nil, apperror.NewIncompleteDecisionSet("decision targets an unknown line").
				WithDetail("line_id", d.LineID.String())
		}
		if seen[d.LineID] {
			return nil, apperror.NewIncompleteDecisionSet("duplicate decision for line").
				WithDetail("line_id", d.LineID.String())
		}
		seen[d.LineID] = true

		if !d.Approve {
			if strings.TrimSpace(d.Reason) == "" {
				return nil, apperror.NewMissingRejectionReason().
					WithDetail("line_id", d.LineID.String())
			}
			verdicts = append(verdicts, lineVerdict{line: line, decision: d})
			continue
		}

		if !d.ApprovedQuantity.IsPositive() {
			return nil, apperror.NewQuantityNonPositive(d.LineID.String(), d.ApprovedQuantity.String())
		}
		if d.ApprovedUOM == "" {
			d.ApprovedUOM = line.OriginalUOM
		}

		origRes, err := s.items.ResolveConversion(ctx, line.ItemID, line.OriginalUOM)
		if err != nil {
			return nil, err
		}
		apprRes, err := s.items.ResolveConversion(ctx, line.ItemID, d.ApprovedUOM)
		if err != nil {
			return nil, err
		}

		// Compare in base units so a decision in a different unit is
		// bounded correctly.
		origBase := origRes.Apply(line.OriginalQuantity)
		apprBase := apprRes.Apply(d.ApprovedQuantity)
		if apprBase > origBase {
			return nil, apperror.NewQuantityExceedsOriginal(
				d.LineID.String(), apprBase.String(), origBase.String(),
			)
		}

		verdicts = append(verdicts, lineVerdict{line: line, decision: d, baseQty: apprBase})
	}
	return verdicts, nil
}

// applyApproval fills the line's approved values from the verdict, pricing
// the approved base quantity at the batch rate.
func (s *Service) applyApproval(ctx context.Context, v lineVerdict) error {
	batch, err := s.ledger.BatchByID(ctx, v.line.BatchID)
	if err != nil {
		return err
	}

	base := v.baseQty.Decimal().Mul(batch.RatePerUnit)
	gst := base.Mul(v.line.GSTPercentage).Div(hundred)
	total := base.Add(gst)

	qty := v.decision.ApprovedQuantity
	v.line.ApprovedQuantity = &qty
	v.line.ApprovedUOM = v.decision.ApprovedUOM
	v.line.ApprovedBaseAmount = &base
	v.line.ApprovedGSTAmount = &gst
	v.line.ApprovedTotalAmount = &total
	v.line.Status = issue.ItemApproved
	return nil
}

// stampDecision sets the terminal status and approver metadata.
func (s *Service) stampDecision(ctx context.Context, doc *issue.MaterialIssue, status issue.Status, remarks string) {
	now := time.Now().UTC()
	doc.Status = status
	doc.Remarks = remarks
	doc.ApprovedBy = decidedBy(ctx)
	doc.ApprovedAt = &now
	doc.UpdatedAt = now
}

func (s *Service) persist(ctx context.Context, doc *issue.MaterialIssue) error {
	if err := s.issues.Update(ctx, doc); err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if err := s.issues.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

// record writes the audit snapshot after commit. Audit failure never fails
// the decision itself.
func (s *Service) record(ctx context.Context, doc *issue.MaterialIssue, action, remarks string) {
	if s.recorder == nil {
		return
	}
	rec := &DecisionRecord{
		IssueID:   doc.ID,
		Number:    doc.Number,
		Action:    action,
		Status:    doc.Status,
		DecidedBy: doc.ApprovedBy,
		DecidedAt: time.Now().UTC(),
		Remarks:   remarks,
		Lines:     doc.Lines,
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "decision audit record failed",
			"issue_id", doc.ID,
			"action", action,
			"error", err,
		)
	}
}

func decidedBy(ctx context.Context) string {
	if actor := appctx.GetActor(ctx); actor != nil {
		return actor.UserID
	}
	return "system"
}
