package dto

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/issue"
)

// CreateIssueRequest for creating material issues.
type CreateIssueRequest struct {
	FromLocation LocationRefDTO     `json:"fromLocation" binding:"required"`
	ToLocation   LocationRefDTO     `json:"toLocation" binding:"required"`
	Date         *time.Time         `json:"date"`
	Remarks      string             `json:"remarks"`
	Lines        []IssueLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// IssueLineRequest is one requested approval item.
type IssueLineRequest struct {
	ItemID        string         `json:"itemId" binding:"required"`
	BatchID       string         `json:"batchId" binding:"required"`
	Quantity      types.Quantity `json:"quantity" binding:"required"`
	UOM           string         `json:"uom" binding:"required"`
	GSTPercentage types.Money    `json:"gstPercentage"`
}

// ToEntity converts request to domain document.
func (r CreateIssueRequest) ToEntity() (*issue.MaterialIssue, error) {
	from, err := r.FromLocation.ToRef()
	if err != nil {
		return nil, err
	}
	to, err := r.ToLocation.ToRef()
	if err != nil {
		return nil, err
	}

	doc := issue.NewMaterialIssue(from, to)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Remarks = r.Remarks

	for i, l := range r.Lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").
				WithDetail("lineNo", i+1)
		}
		batchID, err := id.Parse(l.BatchID)
		if err != nil {
			return nil, apperror.NewValidation("invalid batch id").
				WithDetail("lineNo", i+1)
		}
		doc.AddLine(itemID, batchID, l.Quantity, l.UOM, l.GSTPercentage)
	}
	return doc, nil
}

// IssueLineResponse is one approval item with original and approved values.
type IssueLineResponse struct {
	ID     string `json:"id"`
	LineNo int    `json:"lineNo"`

	ItemID  string `json:"itemId"`
	BatchID string `json:"batchId"`

	OriginalQuantity types.Quantity `json:"originalQuantity"`
	OriginalUOM      string         `json:"originalUom"`
	GSTPercentage    types.Money    `json:"gstPercentage"`

	OriginalBaseAmount  types.Money `json:"originalBaseAmount"`
	OriginalGSTAmount   types.Money `json:"originalGstAmount"`
	OriginalTotalAmount types.Money `json:"originalTotalAmount"`

	ApprovedQuantity    *types.Quantity `json:"approvedQuantity,omitempty"`
	ApprovedUOM         string          `json:"approvedUom,omitempty"`
	ApprovedBaseAmount  *types.Money    `json:"approvedBaseAmount,omitempty"`
	ApprovedGSTAmount   *types.Money    `json:"approvedGstAmount,omitempty"`
	ApprovedTotalAmount *types.Money    `json:"approvedTotalAmount,omitempty"`

	Status string `json:"status"`
}

// IssueResponse contains material issue fields.
type IssueResponse struct {
	ID     string    `json:"id"`
	Number string    `json:"number"`
	Date   time.Time `json:"date"`

	FromLocation LocationRefDTO `json:"fromLocation"`
	ToLocation   LocationRefDTO `json:"toLocation"`

	Posted          bool   `json:"posted"`
	Status          string `json:"status"`
	Remarks         string `json:"remarks,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`

	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	Lines []IssueLineResponse `json:"lines"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

// FromMaterialIssue creates IssueResponse from domain document.
func FromMaterialIssue(doc *issue.MaterialIssue) *IssueResponse {
	resp := &IssueResponse{
		ID:              doc.ID.String(),
		Number:          doc.Number,
		Date:            doc.Date,
		FromLocation:    FromLocationRef(doc.FromLocation),
		ToLocation:      FromLocationRef(doc.ToLocation),
		Posted:          doc.Posted,
		Status:          string(doc.Status),
		Remarks:         doc.Remarks,
		RejectionReason: doc.RejectionReason,
		ApprovedBy:      doc.ApprovedBy,
		ApprovedAt:      doc.ApprovedAt,
		Lines:           make([]IssueLineResponse, len(doc.Lines)),
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		Version:         doc.Version,
	}
	for i, l := range doc.Lines {
		resp.Lines[i] = IssueLineResponse{
			ID:                  l.ID.String(),
			LineNo:              l.LineNo,
			ItemID:              l.ItemID.String(),
			BatchID:             l.BatchID.String(),
			OriginalQuantity:    l.OriginalQuantity,
			OriginalUOM:         l.OriginalUOM,
			GSTPercentage:       l.GSTPercentage,
			OriginalBaseAmount:  l.OriginalBaseAmount,
			OriginalGSTAmount:   l.OriginalGSTAmount,
			OriginalTotalAmount: l.OriginalTotalAmount,
			ApprovedQuantity:    l.ApprovedQuantity,
			ApprovedUOM:         l.ApprovedUOM,
			ApprovedBaseAmount:  l.ApprovedBaseAmount,
			ApprovedGSTAmount:   l.ApprovedGSTAmount,
			ApprovedTotalAmount: l.ApprovedTotalAmount,
			Status:              string(l.Status),
		}
	}
	return resp
}
