package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// IssueHandler handles HTTP requests for material issue documents.
type IssueHandler struct {
	*BaseHandler
	service *issue.Service
}

// NewIssueHandler creates a new material issue handler.
func NewIssueHandler(base *BaseHandler, service *issue.Service) *IssueHandler {
	return &IssueHandler{BaseHandler: base, service: service}
}

// Create handles POST /issues.
func (h *IssueHandler) Create(c *gin.Context) {
	var req dto.CreateIssueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	doc.CreatedBy = h.GetUserID(c)

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromMaterialIssue(doc))
}

// Get handles GET /issues/:id.
func (h *IssueHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaterialIssue(doc))
}

// List handles GET /issues.
func (h *IssueHandler) List(c *gin.Context) {
	filter := issue.ListFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if status := c.Query("status"); status != "" {
		s := issue.Status(status)
		filter.Status = &s
	}
	if from := c.Query("fromLocationId"); from != "" {
		if parsed, err := id.Parse(from); err == nil {
			filter.FromLocation = &parsed
		}
	}
	if to := c.Query("toLocationId"); to != "" {
		if parsed, err := id.Parse(to); err == nil {
			filter.ToLocation = &parsed
		}
	}
	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	docs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	responses := make([]*dto.IssueResponse, len(docs))
	for i, doc := range docs {
		responses[i] = dto.FromMaterialIssue(doc)
	}

	h.OK(c, dto.ListResponse{
		Items:  responses,
		Count:  len(responses),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Post handles POST /issues/:id/post - decrements the source batches and
// prices the lines at the batch rate.
func (h *IssueHandler) Post(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.Post(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaterialIssue(doc))
}

// RegisterRoutes registers material issue routes.
func (h *IssueHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/post", h.Post)
}
