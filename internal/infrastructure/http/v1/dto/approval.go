package dto

import (
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/approval"
)

// ApproveRequest accepts the whole issue as posted.
type ApproveRequest struct {
	Remarks string `json:"remarks"`
}

// RejectRequest refuses the whole issue; the reason is mandatory.
type RejectRequest struct {
	Reason  string `json:"reason" binding:"required"`
	Remarks string `json:"remarks"`
}

// DecisionRequest is the approver's verdict on one line.
type DecisionRequest struct {
	LineID  string `json:"lineId" binding:"required"`
	Approve bool   `json:"approve"`

	ApprovedQuantity types.Quantity `json:"approvedQuantity"`
	ApprovedUOM      string         `json:"approvedUom"`

	Reason string `json:"reason"`
}

// PartialAcceptRequest carries one decision per line.
type PartialAcceptRequest struct {
	Decisions []DecisionRequest `json:"decisions" binding:"required,min=1,dive"`
	Remarks   string            `json:"remarks"`
}

// ToDecisions converts the request to domain decisions.
func (r PartialAcceptRequest) ToDecisions() ([]approval.Decision, error) {
	decisions := make([]approval.Decision, len(r.Decisions))
	for i, d := range r.Decisions {
		lineID, err := id.Parse(d.LineID)
		if err != nil {
			return nil, apperror.NewValidation("invalid line id").
				WithDetail("line_id", d.LineID)
		}
		decisions[i] = approval.Decision{
			LineID:           lineID,
			Approve:          d.Approve,
			ApprovedQuantity: d.ApprovedQuantity,
			ApprovedUOM:      d.ApprovedUOM,
			Reason:           d.Reason,
		}
	}
	return decisions, nil
}
