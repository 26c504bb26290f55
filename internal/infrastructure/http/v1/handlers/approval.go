package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/approval"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// DecisionHistory reads the audit trail of decisions for one issue.
type DecisionHistory interface {
	History(ctx context.Context, issueID id.ID, limit int) ([]approval.DecisionRecord, error)
}

// ApprovalHandler handles material issue approval decisions.
type ApprovalHandler struct {
	*BaseHandler
	service *approval.Service
	history DecisionHistory
}

// NewApprovalHandler creates a new approval handler. History may be nil.
func NewApprovalHandler(base *BaseHandler, service *approval.Service, history DecisionHistory) *ApprovalHandler {
	return &ApprovalHandler{BaseHandler: base, service: service, history: history}
}

// Approve handles POST /issues/:id/approve - accepts every line as issued.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	issueID, ok := h.ParseID(c)
	if !ok {
		return
	}

	// Remarks are optional; an empty body means approve as issued.
	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Approve(c.Request.Context(), issueID, req.Remarks)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaterialIssue(doc))
}

// Reject handles POST /issues/:id/reject - refuses the whole issue and
// reverses its stock movements.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	issueID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.RejectRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Reject(c.Request.Context(), issueID, req.Reason, req.Remarks)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaterialIssue(doc))
}

// PartialAccept handles POST /issues/:id/partial-accept - applies a
// per-line decision set covering every line.
func (h *ApprovalHandler) PartialAccept(c *gin.Context) {
	issueID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.PartialAcceptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	decisions, err := req.ToDecisions()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.PartialAccept(c.Request.Context(), issueID, decisions, req.Remarks)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaterialIssue(doc))
}

// Decisions handles GET /issues/:id/decisions - the audit trail, newest first.
func (h *ApprovalHandler) Decisions(c *gin.Context) {
	issueID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if h.history == nil {
		h.OK(c, dto.ListResponse{Items: []any{}})
		return
	}

	records, err := h.history.History(c.Request.Context(), issueID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: records, Count: len(records)})
}

// RegisterRoutes registers approval routes on the issues group.
func (h *ApprovalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/partial-accept", h.PartialAccept)
	rg.GET("/:id/decisions", h.Decisions)
}
