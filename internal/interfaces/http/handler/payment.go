package handler

import (
	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment endpoints, including allocation of a payment
// against documents
type PaymentHandler struct {
	BaseHandler
	payments    *settlement.PaymentService
	allocations *settlement.AllocationService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *settlement.PaymentService, allocations *settlement.AllocationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, allocations: allocations}
}

// ===================== Request DTOs =====================

// CreatePaymentRequest is the body of POST /payments.
// Which account fields are required depends on the type.
type CreatePaymentRequest struct {
	BranchID                 *uuid.UUID      `json:"branch_id"`
	PaymentNumber            string          `json:"payment_number" binding:"max=50"`
	Type                     string          `json:"type" binding:"required"`
	Direction                string          `json:"direction" binding:"omitempty,oneof=in out internal"`
	PartyID                  *uuid.UUID      `json:"party_id"`
	CashboxID                *uuid.UUID      `json:"cashbox_id"`
	BankAccountID            *uuid.UUID      `json:"bank_account_id"`
	DestinationCashboxID     *uuid.UUID      `json:"destination_cashbox_id"`
	DestinationBankAccountID *uuid.UUID      `json:"destination_bank_account_id"`
	PaymentDate              string          `json:"payment_date" binding:"required"`
	Amount                   decimal.Decimal `json:"amount"`
	FeeAmount                decimal.Decimal `json:"fee_amount"`
	ReferenceType            string          `json:"reference_type" binding:"max=50"`
	ReferenceID              *uuid.UUID      `json:"reference_id"`
	Currency                 string          `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate             decimal.Decimal `json:"exchange_rate"`
	Description              string          `json:"description" binding:"max=1000"`
	Notes                    string          `json:"notes" binding:"max=2000"`
}

// UpdatePaymentRequest is the body of PUT /payments/{id}; omitted fields are unchanged
type UpdatePaymentRequest struct {
	PartyID       *uuid.UUID       `json:"party_id"`
	PaymentDate   *string          `json:"payment_date"`
	Amount        *decimal.Decimal `json:"amount"`
	FeeAmount     *decimal.Decimal `json:"fee_amount"`
	ReferenceType *string          `json:"reference_type"`
	ReferenceID   *uuid.UUID       `json:"reference_id"`
	Currency      *string          `json:"currency"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate"`
	Description   *string          `json:"description"`
	Notes         *string          `json:"notes"`
}

// AllocationLineRequest is one requested settlement of a document
type AllocationLineRequest struct {
	DocumentID     uuid.UUID       `json:"document_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	AllocationDate *string         `json:"allocation_date"`
	Notes          string          `json:"notes" binding:"max=1000"`
}

// AllocateRequest is the body of POST /payments/{id}/allocate. The batch is all or nothing.
type AllocateRequest struct {
	Allocations []AllocationLineRequest `json:"allocations" binding:"required,min=1,dive"`
}

// AutoAllocateRequest optionally names the party whose documents are settled
type AutoAllocateRequest struct {
	PartyID *uuid.UUID `json:"party_id"`
}

// OverpaymentRequest is the amount to record as an advance
type OverpaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentListQuery holds the query parameters of GET /payments
type PaymentListQuery struct {
	dto.ListRequest
	PartyID   string `form:"party_id" binding:"omitempty,uuid"`
	Type      string `form:"type"`
	Direction string `form:"direction" binding:"omitempty,oneof=in out internal"`
	Status    string `form:"status"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// ===================== Handlers =====================

// Create godoc
// @Summary      Create a payment
// @Description  Record a confirmed cash or bank movement. Cash outflows are checked against the cashbox balance.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body CreatePaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=settlement.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	paymentDate, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	pay, err := h.payments.Create(c.Request.Context(), settlement.CreatePaymentInput{
		CompanyID:                companyID,
		BranchID:                 req.BranchID,
		PaymentNumber:            req.PaymentNumber,
		Type:                     req.Type,
		Direction:                req.Direction,
		PartyID:                  req.PartyID,
		CashboxID:                req.CashboxID,
		BankAccountID:            req.BankAccountID,
		DestinationCashboxID:     req.DestinationCashboxID,
		DestinationBankAccountID: req.DestinationBankAccountID,
		PaymentDate:              paymentDate,
		Amount:                   req.Amount,
		FeeAmount:                req.FeeAmount,
		ReferenceType:            req.ReferenceType,
		ReferenceID:              req.ReferenceID,
		Currency:                 req.Currency,
		ExchangeRate:             req.ExchangeRate,
		Description:              req.Description,
		Notes:                    req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, pay)
}

// List godoc
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Param        order_by query string false "Sort field" Enums(payment_date, payment_number, amount, created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        search query string false "Number or description"
// @Param        party_id query string false "Party ID" format(uuid)
// @Param        type query string false "Payment type"
// @Param        direction query string false "in, out or internal"
// @Param        status query string false "Comma separated statuses"
// @Param        date_from query string false "From date (YYYY-MM-DD)"
// @Param        date_to query string false "To date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]settlement.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var query PaymentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	page := query.ListRequest.Normalize()
	filter := settlement.PaymentListFilter{
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

	pays, total, err := h.payments.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, pays, total, page.Page, page.PageSize)
}

// Get godoc
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}

	pay, err := h.payments.Get(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pay)
}

// Update godoc
// @Summary      Update a payment
// @Description  The amount cannot drop below the allocated amount
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body UpdatePaymentRequest true "Changes"
// @Success      200 {object} dto.Response{data=settlement.PaymentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	paymentDate, err := parseOptionalDate("payment_date", req.PaymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	pay, err := h.payments.Update(c.Request.Context(), companyID, id, settlement.UpdatePaymentInput{
		PartyID:       req.PartyID,
		PaymentDate:   paymentDate,
		Amount:        req.Amount,
		FeeAmount:     req.FeeAmount,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Currency:      req.Currency,
		ExchangeRate:  req.ExchangeRate,
		Description:   req.Description,
		Notes:         req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pay)
}

// Cancel godoc
// @Summary      Cancel a payment
// @Description  Only payments without active allocations can be cancelled
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=settlement.PaymentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	pay, err := h.payments.Cancel(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pay)
}

// Reverse godoc
// @Summary      Reverse a payment
// @Description  Cancels the payment's allocations and records a mirror payment in the opposite direction
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=settlement.PaymentReversalResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/reverse [post]
func (h *PaymentHandler) Reverse(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	result, err := h.payments.Reverse(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Allocate godoc
// @Summary      Allocate a payment to documents
// @Description  Applies every line or none. Each amount must fit both the payment's unallocated
// @Description  amount and the document's unpaid amount, and directions must be compatible.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body AllocateRequest true "Allocations"
// @Success      200 {object} dto.Response{data=settlement.AllocationResult}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/allocate [post]
func (h *PaymentHandler) Allocate(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req AllocateRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	lines := make([]settlement.AllocationLineInput, len(req.Allocations))
	for i, l := range req.Allocations {
		date, err := parseOptionalDate("allocation_date", l.AllocationDate)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		lines[i] = settlement.AllocationLineInput{
			DocumentID:     l.DocumentID,
			Amount:         l.Amount,
			AllocationDate: date,
			Notes:          l.Notes,
		}
	}

	result, err := h.allocations.Allocate(c.Request.Context(), companyID, id, settlement.AllocateInput{Lines: lines})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AutoAllocate godoc
// @Summary      Allocate a payment oldest-first
// @Description  Settles the party's open documents of a compatible direction by due date, then document date
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body AutoAllocateRequest false "Party override"
// @Success      200 {object} dto.Response{data=settlement.AllocationResult}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/auto-allocate [post]
func (h *PaymentHandler) AutoAllocate(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req AutoAllocateRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	result, err := h.allocations.AutoAllocate(c.Request.Context(), companyID, id, req.PartyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Overpayment godoc
// @Summary      Record an overpayment as an advance
// @Description  Creates an advance document for the payment's party; the advance is left unallocated
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body OverpaymentRequest true "Excess amount"
// @Success      201 {object} dto.Response{data=settlement.DocumentResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/overpayment [post]
func (h *PaymentHandler) Overpayment(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req OverpaymentRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	doc, err := h.allocations.HandleOverpayment(c.Request.Context(), companyID, id, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// ListAllocations godoc
// @Summary      List a payment's allocations
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        active query bool false "Only active allocations"
// @Success      200 {object} dto.Response{data=[]settlement.AllocationResponse}
// @Security     BearerAuth
// @Router       /payments/{id}/allocations [get]
func (h *PaymentHandler) ListAllocations(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}

	allocs, err := h.allocations.ListByPayment(c.Request.Context(), companyID, id, c.Query("active") == "true")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, allocs)
}

// CancelAllocations godoc
// @Summary      Cancel every active allocation of a payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=CancelledCountResponse}
// @Security     BearerAuth
// @Router       /payments/{id}/allocations/cancel [post]
func (h *PaymentHandler) CancelAllocations(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "payment")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	n, err := h.allocations.CancelPaymentAllocations(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CancelledCountResponse{Cancelled: n})
}
