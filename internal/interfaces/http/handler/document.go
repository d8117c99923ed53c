package handler

import (
	"github.com/erp/settlement/internal/application/settlement"
	domain "github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentHandler handles payable and receivable document endpoints
type DocumentHandler struct {
	BaseHandler
	documents   *settlement.DocumentService
	allocations *settlement.AllocationService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents *settlement.DocumentService, allocations *settlement.AllocationService) *DocumentHandler {
	return &DocumentHandler{documents: documents, allocations: allocations}
}

// ===================== Request DTOs =====================

// CreateDocumentRequest is the body of POST /documents. Dates are YYYY-MM-DD or RFC 3339.
type CreateDocumentRequest struct {
	BranchID       *uuid.UUID                     `json:"branch_id"`
	DocumentNumber string                         `json:"document_number" binding:"max=50"`
	Type           string                         `json:"type" binding:"required"`
	Direction      string                         `json:"direction" binding:"omitempty,oneof=payable receivable"`
	PartyID        uuid.UUID                      `json:"party_id" binding:"required"`
	DocumentDate   string                         `json:"document_date" binding:"required"`
	DueDate        *string                        `json:"due_date"`
	TotalAmount    decimal.Decimal                `json:"total_amount"`
	CategoryID     *uuid.UUID                     `json:"category_id"`
	Currency       string                         `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate   decimal.Decimal                `json:"exchange_rate"`
	Description    string                         `json:"description" binding:"max=1000"`
	Notes          string                         `json:"notes" binding:"max=2000"`
	Lines          []settlement.DocumentLineInput `json:"lines"`
	AsDraft        bool                           `json:"as_draft"`
}

// UpdateDocumentRequest is the body of PUT /documents/{id}; omitted fields are unchanged
type UpdateDocumentRequest struct {
	PartyID      *uuid.UUID                     `json:"party_id"`
	DocumentDate *string                        `json:"document_date"`
	DueDate      *string                        `json:"due_date"`
	TotalAmount  *decimal.Decimal               `json:"total_amount"`
	CategoryID   *uuid.UUID                     `json:"category_id"`
	Currency     *string                        `json:"currency"`
	ExchangeRate *decimal.Decimal               `json:"exchange_rate"`
	Description  *string                        `json:"description"`
	Notes        *string                        `json:"notes"`
	Lines        []settlement.DocumentLineInput `json:"lines"`
	ReplaceLines bool                           `json:"replace_lines"`
}

// ReasonRequest carries the reason for a cancellation or reversal
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// DocumentListQuery holds the query parameters of GET /documents
type DocumentListQuery struct {
	dto.ListRequest
	PartyID   string `form:"party_id" binding:"omitempty,uuid"`
	Type      string `form:"type"`
	Direction string `form:"direction" binding:"omitempty,oneof=payable receivable"`
	Status    string `form:"status"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// ===================== Handlers =====================

// Create godoc
// @Summary      Create a document
// @Description  Record a payable or receivable obligation. The number is generated when omitted
// @Description  and the direction is derived from the type when omitted.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request body CreateDocumentRequest true "Document"
// @Success      201 {object} dto.Response{data=settlement.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var req CreateDocumentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	documentDate, err := parseDate("document_date", req.DocumentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	dueDate, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), settlement.CreateDocumentInput{
		CompanyID:      companyID,
		BranchID:       req.BranchID,
		DocumentNumber: req.DocumentNumber,
		Type:           req.Type,
		Direction:      req.Direction,
		PartyID:        req.PartyID,
		DocumentDate:   documentDate,
		DueDate:        dueDate,
		TotalAmount:    req.TotalAmount,
		CategoryID:     req.CategoryID,
		Currency:       req.Currency,
		ExchangeRate:   req.ExchangeRate,
		Description:    req.Description,
		Notes:          req.Notes,
		Lines:          req.Lines,
		AsDraft:        req.AsDraft,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// List godoc
// @Summary      List documents
// @Tags         documents
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Param        order_by query string false "Sort field" Enums(document_date, due_date, document_number, total_amount, created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        search query string false "Number or description"
// @Param        party_id query string false "Party ID" format(uuid)
// @Param        type query string false "Document type"
// @Param        direction query string false "payable or receivable"
// @Param        status query string false "Comma separated statuses"
// @Param        date_from query string false "From date (YYYY-MM-DD)"
// @Param        date_to query string false "To date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]settlement.DocumentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var query DocumentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	page := query.ListRequest.Normalize()
	filter := settlement.DocumentListFilter{
		Page:      page.Page,
		PageSize:  page.PageSize,
		OrderBy:   page.OrderBy,
		OrderDir:  page.OrderDir,
		Type:      query.Type,
		Direction: query.Direction,
		Statuses:  splitList(query.Status),
		Search:    page.Search,
	}
	if query.PartyID != "" {
		partyID := uuid.MustParse(query.PartyID)
		filter.PartyID = &partyID
	}
	var err error
	if filter.DateFrom, err = parseOptionalDate("date_from", &query.DateFrom); err != nil {
		h.HandleError(c, err)
		return
	}
	if filter.DateTo, err = parseOptionalDate("date_to", &query.DateTo); err != nil {
		h.HandleError(c, err)
		return
	}

	docs, total, err := h.documents.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, docs, total, page.Page, page.PageSize)
}

// Get godoc
// @Summary      Get a document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Update godoc
// @Summary      Update a document
// @Description  Draft and pending documents only; the total cannot drop below the allocated amount
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body UpdateDocumentRequest true "Changes"
// @Success      200 {object} dto.Response{data=settlement.DocumentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}
	var req UpdateDocumentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	documentDate, err := parseOptionalDate("document_date", req.DocumentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	dueDate, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	doc, err := h.documents.Update(c.Request.Context(), companyID, id, settlement.UpdateDocumentInput{
		PartyID:      req.PartyID,
		DocumentDate: documentDate,
		DueDate:      dueDate,
		TotalAmount:  req.TotalAmount,
		CategoryID:   req.CategoryID,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
		Description:  req.Description,
		Notes:        req.Notes,
		Lines:        req.Lines,
		ReplaceLines: req.ReplaceLines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Post godoc
// @Summary      Post a draft document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.DocumentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/post [post]
func (h *DocumentHandler) Post(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}

	doc, err := h.documents.Post(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Cancel godoc
// @Summary      Cancel a document
// @Description  Only documents without active allocations can be cancelled
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=settlement.DocumentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/cancel [post]
func (h *DocumentHandler) Cancel(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	doc, err := h.documents.Cancel(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Reverse godoc
// @Summary      Reverse a document
// @Description  Cancels the document's allocations and records a mirror document with the negated total
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=settlement.DocumentReversalResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/reverse [post]
func (h *DocumentHandler) Reverse(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	result, err := h.documents.Reverse(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListAllocations godoc
// @Summary      List a document's allocations
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        active query bool false "Only active allocations"
// @Success      200 {object} dto.Response{data=[]settlement.AllocationResponse}
// @Security     BearerAuth
// @Router       /documents/{id}/allocations [get]
func (h *DocumentHandler) ListAllocations(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}

	allocs, err := h.allocations.ListByDocument(c.Request.Context(), companyID, id, c.Query("active") == "true")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, allocs)
}

// CancelAllocations godoc
// @Summary      Cancel every active allocation of a document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=CancelledCountResponse}
// @Security     BearerAuth
// @Router       /documents/{id}/allocations/cancel [post]
func (h *DocumentHandler) CancelAllocations(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "document")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	n, err := h.allocations.CancelDocumentAllocations(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CancelledCountResponse{Cancelled: n})
}

// OpenForParty godoc
// @Summary      List a party's open documents
// @Description  Pending and partial documents in settlement order (due date, then document date)
// @Tags         documents
// @Produce      json
// @Param        party_id path string true "Party ID" format(uuid)
// @Param        direction query string false "payable or receivable"
// @Success      200 {object} dto.Response{data=[]settlement.DocumentResponse}
// @Security     BearerAuth
// @Router       /parties/{party_id}/open-documents [get]
func (h *DocumentHandler) OpenForParty(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	partyID, ok := h.pathUUID(c, "party_id", "party")
	if !ok {
		return
	}
	direction := domain.DocumentDirection(c.Query("direction"))
	if direction != "" && !direction.IsValid() {
		h.BadRequest(c, "direction must be payable or receivable")
		return
	}

	docs, err := h.documents.OpenDocumentsForParty(c.Request.Context(), companyID, partyID, direction)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, docs)
}

// CancelledCountResponse reports how many allocations a bulk cancel retired
type CancelledCountResponse struct {
	Cancelled int `json:"cancelled"`
}
