package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Periods =====================

// PeriodResponse represents an accounting period in API responses.
// A month without a stored row is reported open with a nil ID.
type PeriodResponse struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID uuid.UUID  `json:"company_id"`
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Status    string     `json:"status"`
	LockedBy  *uuid.UUID `json:"locked_by,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	LockNotes string     `json:"lock_notes,omitempty"`
	Version   int        `json:"version"`
}

func toPeriodResponse(p *settlement.Period) *PeriodResponse {
	return &PeriodResponse{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		Year:      p.Year,
		Month:     p.Month,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    string(p.Status),
		LockedBy:  p.LockedBy,
		LockedAt:  p.LockedAt,
		LockNotes: p.LockNotes,
		Version:   p.Version,
	}
}

// virtualPeriod describes a month that has no row yet
func virtualPeriod(companyID uuid.UUID, year, month int) (*PeriodResponse, error) {
	p, err := settlement.NewPeriod(companyID, year, month)
	if err != nil {
		return nil, err
	}
	resp := toPeriodResponse(p)
	resp.ID = uuid.Nil
	resp.Version = 0
	return resp, nil
}

// ===================== Documents =====================

// DocumentLineInput is one line item of a document
type DocumentLineInput struct {
	Description string          `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// CreateDocumentInput carries the fields of a new document.
// Number is generated when empty; direction is derived from type when empty.
type CreateDocumentInput struct {
	CompanyID      uuid.UUID           `json:"company_id" validate:"required"`
	BranchID       *uuid.UUID          `json:"branch_id"`
	DocumentNumber string              `json:"document_number" validate:"omitempty,max=50"`
	Type           string              `json:"type" validate:"required,max=30"`
	Direction      string              `json:"direction" validate:"omitempty,oneof=payable receivable"`
	PartyID        uuid.UUID           `json:"party_id" validate:"required"`
	DocumentDate   time.Time           `json:"document_date" validate:"required"`
	DueDate        *time.Time          `json:"due_date"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	CategoryID     *uuid.UUID          `json:"category_id"`
	Currency       string              `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate   decimal.Decimal     `json:"exchange_rate"`
	Description    string              `json:"description" validate:"max=1000"`
	Notes          string              `json:"notes" validate:"max=2000"`
	Lines          []DocumentLineInput `json:"lines" validate:"omitempty,dive"`
	AsDraft        bool                `json:"as_draft"`
}

// UpdateDocumentInput lists editable document fields; nil leaves a field unchanged.
// Lines replace the existing lines when ReplaceLines is set.
type UpdateDocumentInput struct {
	PartyID      *uuid.UUID          `json:"party_id"`
	DocumentDate *time.Time          `json:"document_date"`
	DueDate      *time.Time          `json:"due_date"`
	TotalAmount  *decimal.Decimal    `json:"total_amount"`
	CategoryID   *uuid.UUID          `json:"category_id"`
	Currency     *string             `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate *decimal.Decimal    `json:"exchange_rate"`
	Description  *string             `json:"description" validate:"omitempty,max=1000"`
	Notes        *string             `json:"notes" validate:"omitempty,max=2000"`
	Lines        []DocumentLineInput `json:"lines" validate:"omitempty,dive"`
	ReplaceLines bool                `json:"replace_lines"`
}

// DocumentListFilter narrows a document listing
type DocumentListFilter struct {
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	OrderBy   string     `json:"order_by"`
	OrderDir  string     `json:"order_dir"`
	PartyID   *uuid.UUID `json:"party_id"`
	Type      string     `json:"type"`
	Direction string     `json:"direction"`
	Statuses  []string   `json:"statuses"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Search    string     `json:"search"`
}

func (f DocumentListFilter) toDomain() settlement.DocumentFilter {
	out := settlement.DocumentFilter{
		Filter:    shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir},
		PartyID:   f.PartyID,
		Type:      settlement.DocumentType(f.Type),
		Direction: settlement.DocumentDirection(f.Direction),
		DateFrom:  f.DateFrom,
		DateTo:    f.DateTo,
		Search:    f.Search,
	}
	for _, s := range f.Statuses {
		out.Statuses = append(out.Statuses, settlement.DocumentStatus(s))
	}
	out.Filter = out.Filter.Normalize()
	return out
}

// DocumentLineResponse represents a document line in API responses
type DocumentLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"line_no"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID                 uuid.UUID              `json:"id"`
	CompanyID          uuid.UUID              `json:"company_id"`
	BranchID           *uuid.UUID             `json:"branch_id,omitempty"`
	DocumentNumber     string                 `json:"document_number"`
	Type               string                 `json:"type"`
	Direction          string                 `json:"direction"`
	PartyID            uuid.UUID              `json:"party_id"`
	DocumentDate       time.Time              `json:"document_date"`
	DueDate            *time.Time             `json:"due_date,omitempty"`
	TotalAmount        decimal.Decimal        `json:"total_amount"`
	AllocatedAmount    decimal.Decimal        `json:"allocated_amount"`
	UnpaidAmount       decimal.Decimal        `json:"unpaid_amount"`
	Status             string                 `json:"status"`
	ReversedDocumentID *uuid.UUID             `json:"reversed_document_id,omitempty"`
	ReversalDocumentID *uuid.UUID             `json:"reversal_document_id,omitempty"`
	CategoryID         *uuid.UUID             `json:"category_id,omitempty"`
	Currency           string                 `json:"currency"`
	ExchangeRate       decimal.Decimal        `json:"exchange_rate"`
	Description        string                 `json:"description,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	ReversedAt         *time.Time             `json:"reversed_at,omitempty"`
	Lines              []DocumentLineResponse `json:"lines,omitempty"`
	CreatedBy          *uuid.UUID             `json:"created_by,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	Version            int                    `json:"version"`
}

// DocumentReversalResponse pairs a reversed document with its mirror
type DocumentReversalResponse struct {
	Original *DocumentResponse `json:"original"`
	Reversal *DocumentResponse `json:"reversal"`
}

func toDocumentResponse(d *settlement.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:                 d.ID,
		CompanyID:          d.CompanyID,
		BranchID:           d.BranchID,
		DocumentNumber:     d.DocumentNumber,
		Type:               string(d.Type),
		Direction:          string(d.Direction),
		PartyID:            d.PartyID,
		DocumentDate:       d.DocumentDate,
		DueDate:            d.DueDate,
		TotalAmount:        d.TotalAmount,
		AllocatedAmount:    d.AllocatedAmount,
		UnpaidAmount:       d.UnpaidAmount(),
		Status:             string(d.Status),
		ReversedDocumentID: d.ReversedDocumentID,
		ReversalDocumentID: d.ReversalDocumentID,
		CategoryID:         d.CategoryID,
		Currency:           d.Currency,
		ExchangeRate:       d.ExchangeRate,
		Description:        d.Description,
		Notes:              d.Notes,
		CancelledAt:        d.CancelledAt,
		ReversedAt:         d.ReversedAt,
		CreatedBy:          d.CreatedBy,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Version:            d.Version,
	}
	if len(d.Lines) > 0 {
		resp.Lines = make([]DocumentLineResponse, len(d.Lines))
		for i, l := range d.Lines {
			resp.Lines[i] = DocumentLineResponse{
				ID:          l.ID,
				LineNo:      l.LineNo,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				TaxAmount:   l.TaxAmount,
				LineTotal:   l.LineTotal,
			}
		}
	}
	return resp
}

func toDocumentResponses(docs []settlement.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = *toDocumentResponse(&docs[i])
	}
	return out
}

func toDocumentLines(in []DocumentLineInput) ([]settlement.DocumentLine, error) {
	if len(in) == 0 {
		return nil, nil
	}
	lines := make([]settlement.DocumentLine, 0, len(in))
	for i, l := range in {
		line, err := settlement.NewDocumentLine(i+1, l.Description, l.Quantity, l.UnitPrice, l.TaxAmount)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ===================== Payments =====================

// CreatePaymentInput carries the fields of a new payment.
// Which account fields are required depends on the payment type.
type CreatePaymentInput struct {
	CompanyID                uuid.UUID       `json:"company_id" validate:"required"`
	BranchID                 *uuid.UUID      `json:"branch_id"`
	PaymentNumber            string          `json:"payment_number" validate:"omitempty,max=50"`
	Type                     string          `json:"type" validate:"required,max=30"`
	Direction                string          `json:"direction" validate:"omitempty,oneof=in out internal"`
	PartyID                  *uuid.UUID      `json:"party_id"`
	CashboxID                *uuid.UUID      `json:"cashbox_id"`
	BankAccountID            *uuid.UUID      `json:"bank_account_id"`
	DestinationCashboxID     *uuid.UUID      `json:"destination_cashbox_id"`
	DestinationBankAccountID *uuid.UUID      `json:"destination_bank_account_id"`
	PaymentDate              time.Time       `json:"payment_date" validate:"required"`
	Amount                   decimal.Decimal `json:"amount"`
	FeeAmount                decimal.Decimal `json:"fee_amount"`
	ReferenceType            string          `json:"reference_type" validate:"max=50"`
	ReferenceID              *uuid.UUID      `json:"reference_id"`
	Currency                 string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate             decimal.Decimal `json:"exchange_rate"`
	Description              string          `json:"description" validate:"max=1000"`
	Notes                    string          `json:"notes" validate:"max=2000"`
}

// UpdatePaymentInput lists editable payment fields; nil leaves a field unchanged
type UpdatePaymentInput struct {
	PartyID       *uuid.UUID       `json:"party_id"`
	PaymentDate   *time.Time       `json:"payment_date"`
	Amount        *decimal.Decimal `json:"amount"`
	FeeAmount     *decimal.Decimal `json:"fee_amount"`
	ReferenceType *string          `json:"reference_type" validate:"omitempty,max=50"`
	ReferenceID   *uuid.UUID       `json:"reference_id"`
	Currency      *string          `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate"`
	Description   *string          `json:"description" validate:"omitempty,max=1000"`
	Notes         *string          `json:"notes" validate:"omitempty,max=2000"`
}

// PaymentListFilter narrows a payment listing
type PaymentListFilter struct {
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	OrderBy   string     `json:"order_by"`
	OrderDir  string     `json:"order_dir"`
	PartyID   *uuid.UUID `json:"party_id"`
	Type      string     `json:"type"`
	Direction string     `json:"direction"`
	Statuses  []string   `json:"statuses"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Search    string     `json:"search"`
}

func (f PaymentListFilter) toDomain() settlement.PaymentFilter {
	out := settlement.PaymentFilter{
		Filter:    shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir},
		PartyID:   f.PartyID,
		Type:      settlement.PaymentType(f.Type),
		Direction: settlement.PaymentDirection(f.Direction),
		DateFrom:  f.DateFrom,
		DateTo:    f.DateTo,
		Search:    f.Search,
	}
	for _, s := range f.Statuses {
		out.Statuses = append(out.Statuses, settlement.PaymentStatus(s))
	}
	out.Filter = out.Filter.Normalize()
	return out
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                       uuid.UUID       `json:"id"`
	CompanyID                uuid.UUID       `json:"company_id"`
	BranchID                 *uuid.UUID      `json:"branch_id,omitempty"`
	PaymentNumber            string          `json:"payment_number"`
	Type                     string          `json:"type"`
	Direction                string          `json:"direction"`
	PartyID                  *uuid.UUID      `json:"party_id,omitempty"`
	CashboxID                *uuid.UUID      `json:"cashbox_id,omitempty"`
	BankAccountID            *uuid.UUID      `json:"bank_account_id,omitempty"`
	DestinationCashboxID     *uuid.UUID      `json:"destination_cashbox_id,omitempty"`
	DestinationBankAccountID *uuid.UUID      `json:"destination_bank_account_id,omitempty"`
	PaymentDate              time.Time       `json:"payment_date"`
	Amount                   decimal.Decimal `json:"amount"`
	FeeAmount                decimal.Decimal `json:"fee_amount"`
	NetAmount                decimal.Decimal `json:"net_amount"`
	AllocatedAmount          decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount        decimal.Decimal `json:"unallocated_amount"`
	Status                   string          `json:"status"`
	ReversedPaymentID        *uuid.UUID      `json:"reversed_payment_id,omitempty"`
	ReversalPaymentID        *uuid.UUID      `json:"reversal_payment_id,omitempty"`
	ReferenceType            string          `json:"reference_type,omitempty"`
	ReferenceID              *uuid.UUID      `json:"reference_id,omitempty"`
	Currency                 string          `json:"currency"`
	ExchangeRate             decimal.Decimal `json:"exchange_rate"`
	Description              string          `json:"description,omitempty"`
	Notes                    string          `json:"notes,omitempty"`
	CancelledAt              *time.Time      `json:"cancelled_at,omitempty"`
	ReversedAt               *time.Time      `json:"reversed_at,omitempty"`
	CreatedBy                *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
	Version                  int             `json:"version"`
}

// PaymentReversalResponse pairs a reversed payment with its mirror
type PaymentReversalResponse struct {
	Original *PaymentResponse `json:"original"`
	Reversal *PaymentResponse `json:"reversal"`
}

func toPaymentResponse(p *settlement.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                       p.ID,
		CompanyID:                p.CompanyID,
		BranchID:                 p.BranchID,
		PaymentNumber:            p.PaymentNumber,
		Type:                     string(p.Type),
		Direction:                string(p.Direction),
		PartyID:                  p.PartyID,
		CashboxID:                p.CashboxID,
		BankAccountID:            p.BankAccountID,
		DestinationCashboxID:     p.DestinationCashboxID,
		DestinationBankAccountID: p.DestinationBankAccountID,
		PaymentDate:              p.PaymentDate,
		Amount:                   p.Amount,
		FeeAmount:                p.FeeAmount,
		NetAmount:                p.NetAmount,
		AllocatedAmount:          p.AllocatedAmount,
		UnallocatedAmount:        p.UnallocatedAmount(),
		Status:                   string(p.Status),
		ReversedPaymentID:        p.ReversedPaymentID,
		ReversalPaymentID:        p.ReversalPaymentID,
		ReferenceType:            p.ReferenceType,
		ReferenceID:              p.ReferenceID,
		Currency:                 p.Currency,
		ExchangeRate:             p.ExchangeRate,
		Description:              p.Description,
		Notes:                    p.Notes,
		CancelledAt:              p.CancelledAt,
		ReversedAt:               p.ReversedAt,
		CreatedBy:                p.CreatedBy,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
		Version:                  p.Version,
	}
}

func toPaymentResponses(pays []settlement.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(pays))
	for i := range pays {
		out[i] = *toPaymentResponse(&pays[i])
	}
	return out
}

// ===================== Allocations =====================

// AllocationLineInput requests one settlement of a document by a payment.
// The allocation date defaults to the payment date.
type AllocationLineInput struct {
	DocumentID     uuid.UUID       `json:"document_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	AllocationDate *time.Time      `json:"allocation_date"`
	Notes          string          `json:"notes" validate:"max=1000"`
}

// AllocateInput is a batch of allocations applied atomically
type AllocateInput struct {
	Lines []AllocationLineInput `json:"lines" validate:"required,min=1,dive"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID             uuid.UUID       `json:"id"`
	CompanyID      uuid.UUID       `json:"company_id"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	DocumentID     uuid.UUID       `json:"document_id"`
	Amount         decimal.Decimal `json:"amount"`
	AllocationDate time.Time       `json:"allocation_date"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      *uuid.UUID      `json:"created_by,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AllocationResult reports an allocate call: the new rows and the records they changed
type AllocationResult struct {
	Payment          *PaymentResponse     `json:"payment"`
	Allocations      []AllocationResponse `json:"allocations"`
	Documents        []DocumentResponse   `json:"documents"`
	TotalAllocated   decimal.Decimal      `json:"total_allocated"`
	RemainingPayment decimal.Decimal      `json:"remaining_payment"`
}

func toAllocationResponse(a *settlement.PaymentAllocation) *AllocationResponse {
	return &AllocationResponse{
		ID:             a.ID,
		CompanyID:      a.CompanyID,
		PaymentID:      a.PaymentID,
		DocumentID:     a.DocumentID,
		Amount:         a.Amount,
		AllocationDate: a.AllocationDate,
		Status:         string(a.Status),
		Notes:          a.Notes,
		CreatedBy:      a.CreatedBy,
		CancelledAt:    a.CancelledAt,
		CreatedAt:      a.CreatedAt,
	}
}

func toAllocationResponses(as []settlement.PaymentAllocation) []AllocationResponse {
	out := make([]AllocationResponse, len(as))
	for i := range as {
		out[i] = *toAllocationResponse(&as[i])
	}
	return out
}

// ===================== Directory =====================

// CreatePartyInput carries the fields of a new counterparty
type CreatePartyInput struct {
	CompanyID uuid.UUID `json:"company_id" validate:"required"`
	Code      string    `json:"code" validate:"max=50"`
	Name      string    `json:"name" validate:"required,max=200"`
	Type      string    `json:"type" validate:"required,oneof=customer supplier employee other"`
}

// PartyResponse represents a counterparty in API responses
type PartyResponse struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Code      string    `json:"code,omitempty"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toPartyResponse(p *settlement.Party) *PartyResponse {
	return &PartyResponse{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		Code:      p.Code,
		Name:      p.Name,
		Type:      string(p.Type),
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// CreateAccountInput carries the fields of a new cashbox or bank account
type CreateAccountInput struct {
	CompanyID     uuid.UUID `json:"company_id" validate:"required"`
	Kind          string    `json:"kind" validate:"required,oneof=cashbox bank"`
	Code          string    `json:"code" validate:"max=50"`
	Name          string    `json:"name" validate:"required,max=200"`
	BankName      string    `json:"bank_name" validate:"max=200"`
	AccountNumber string    `json:"account_number" validate:"max=100"`
	Currency      string    `json:"currency" validate:"omitempty,len=3"`
}

// AccountResponse represents a cashbox or bank account in API responses
type AccountResponse struct {
	ID            uuid.UUID        `json:"id"`
	CompanyID     uuid.UUID        `json:"company_id"`
	Kind          string           `json:"kind"`
	Code          string           `json:"code,omitempty"`
	Name          string           `json:"name"`
	BankName      string           `json:"bank_name,omitempty"`
	AccountNumber string           `json:"account_number,omitempty"`
	Currency      string           `json:"currency"`
	IsActive      bool             `json:"is_active"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toAccountResponse(a *settlement.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		CompanyID:     a.CompanyID,
		Kind:          string(a.Kind),
		Code:          a.Code,
		Name:          a.Name,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		Currency:      a.Currency,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
	}
}
