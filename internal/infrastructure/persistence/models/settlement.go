package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unique index names; persistence errors are classified by them
const (
	PeriodMonthIndex     = "idx_accounting_periods_company_month"
	DocumentNumberIndex  = "idx_financial_documents_company_number"
	PaymentNumberIndex   = "idx_payments_company_number"
	DocumentNumberColumn = "document_number"
	PaymentNumberColumn  = "payment_number"
)

// PeriodModel is one company month. Missing rows mean the month is open.
type PeriodModel struct {
	AggregateModel
	CompanyID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_accounting_periods_company_month,priority:1"`
	Year      int                     `gorm:"not null;uniqueIndex:idx_accounting_periods_company_month,priority:2"`
	Month     int                     `gorm:"not null;uniqueIndex:idx_accounting_periods_company_month,priority:3"`
	StartDate time.Time               `gorm:"type:date;not null"`
	EndDate   time.Time               `gorm:"type:date;not null"`
	Status    settlement.PeriodStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	LockedBy  *uuid.UUID              `gorm:"type:uuid"`
	LockedAt  *time.Time
	LockNotes string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PeriodModel) TableName() string {
	return "accounting_periods"
}

// ToDomain converts the persistence model to a domain Period
func (m *PeriodModel) ToDomain() *settlement.Period {
	return &settlement.Period{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CompanyID:         m.CompanyID,
		Year:              m.Year,
		Month:             m.Month,
		StartDate:         m.StartDate.UTC(),
		EndDate:           m.EndDate.UTC(),
		Status:            m.Status,
		LockedBy:          m.LockedBy,
		LockedAt:          m.LockedAt,
		LockNotes:         m.LockNotes,
	}
}

// PeriodModelFromDomain creates a persistence model from a domain Period
func PeriodModelFromDomain(p *settlement.Period) *PeriodModel {
	m := &PeriodModel{
		CompanyID: p.CompanyID,
		Year:      p.Year,
		Month:     p.Month,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    p.Status,
		LockedBy:  p.LockedBy,
		LockedAt:  p.LockedAt,
		LockNotes: p.LockNotes,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// DocumentModel is the persistence model for the Document aggregate root
type DocumentModel struct {
	AggregateModel
	CompanyID          uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_financial_documents_company_number,priority:1"`
	BranchID           *uuid.UUID                   `gorm:"type:uuid;index"`
	CreatedBy          *uuid.UUID                   `gorm:"type:uuid"`
	DocumentNumber     string                       `gorm:"type:varchar(50);not null;uniqueIndex:idx_financial_documents_company_number,priority:2"`
	Type               settlement.DocumentType      `gorm:"type:varchar(30);not null;index"`
	Direction          settlement.DocumentDirection `gorm:"type:varchar(20);not null;index"`
	PartyID            uuid.UUID                    `gorm:"type:uuid;not null;index"`
	DocumentDate       time.Time                    `gorm:"type:date;not null;index"`
	DueDate            *time.Time                   `gorm:"type:date"`
	TotalAmount        decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount    decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	Status             settlement.DocumentStatus    `gorm:"type:varchar(20);not null;index"`
	ReversedDocumentID *uuid.UUID                   `gorm:"type:uuid"`
	ReversalDocumentID *uuid.UUID                   `gorm:"type:uuid"`
	CategoryID         *uuid.UUID                   `gorm:"type:uuid"`
	Currency           string                       `gorm:"type:varchar(3);not null"`
	ExchangeRate       decimal.Decimal              `gorm:"type:decimal(18,6);not null;default:1"`
	Description        string                       `gorm:"type:varchar(500)"`
	Notes              string                       `gorm:"type:text"`
	CancelledAt        *time.Time
	ReversedAt         *time.Time
	Lines              []DocumentLineModel `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "financial_documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *settlement.Document {
	doc := &settlement.Document{
		CompanyAggregateRoot: companyRoot(m.AggregateModel, m.CompanyID, m.BranchID, m.CreatedBy),
		DocumentNumber:       m.DocumentNumber,
		Type:                 m.Type,
		Direction:            m.Direction,
		PartyID:              m.PartyID,
		DocumentDate:         settlement.DateOnly(m.DocumentDate),
		DueDate:              dateOnlyPtr(m.DueDate),
		TotalAmount:          m.TotalAmount,
		AllocatedAmount:      m.AllocatedAmount,
		Status:               m.Status,
		ReversedDocumentID:   m.ReversedDocumentID,
		ReversalDocumentID:   m.ReversalDocumentID,
		CategoryID:           m.CategoryID,
		Currency:             m.Currency,
		ExchangeRate:         m.ExchangeRate,
		Description:          m.Description,
		Notes:                m.Notes,
		CancelledAt:          m.CancelledAt,
		ReversedAt:           m.ReversedAt,
		Lines:                make([]settlement.DocumentLine, len(m.Lines)),
	}
	for i := range m.Lines {
		doc.Lines[i] = m.Lines[i].ToDomain()
	}
	return doc
}

// DocumentModelFromDomain creates a persistence model from a domain Document
func DocumentModelFromDomain(d *settlement.Document) *DocumentModel {
	m := &DocumentModel{
		CompanyID:          d.CompanyID,
		BranchID:           d.BranchID,
		CreatedBy:          d.CreatedBy,
		DocumentNumber:     d.DocumentNumber,
		Type:               d.Type,
		Direction:          d.Direction,
		PartyID:            d.PartyID,
		DocumentDate:       d.DocumentDate,
		DueDate:            d.DueDate,
		TotalAmount:        d.TotalAmount,
		AllocatedAmount:    d.AllocatedAmount,
		Status:             d.Status,
		ReversedDocumentID: d.ReversedDocumentID,
		ReversalDocumentID: d.ReversalDocumentID,
		CategoryID:         d.CategoryID,
		Currency:           d.Currency,
		ExchangeRate:       d.ExchangeRate,
		Description:        d.Description,
		Notes:              d.Notes,
		CancelledAt:        d.CancelledAt,
		ReversedAt:         d.ReversedAt,
		Lines:              make([]DocumentLineModel, len(d.Lines)),
	}
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	for i, l := range d.Lines {
		m.Lines[i] = DocumentLineModelFromDomain(d.ID, l)
	}
	return m
}

// DocumentLineModel is one line item of a document
type DocumentLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	DocumentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "financial_document_lines"
}

// ToDomain converts the line model to a domain DocumentLine
func (m *DocumentLineModel) ToDomain() settlement.DocumentLine {
	return settlement.DocumentLine{
		ID:          m.ID,
		DocumentID:  m.DocumentID,
		LineNo:      m.LineNo,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TaxAmount:   m.TaxAmount,
		LineTotal:   m.LineTotal,
	}
}

// DocumentLineModelFromDomain creates a line model owned by documentID
func DocumentLineModelFromDomain(documentID uuid.UUID, l settlement.DocumentLine) DocumentLineModel {
	return DocumentLineModel{
		ID:          l.ID,
		DocumentID:  documentID,
		LineNo:      l.LineNo,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		TaxAmount:   l.TaxAmount,
		LineTotal:   l.LineTotal,
	}
}

// PaymentModel is the persistence model for the Payment aggregate root
type PaymentModel struct {
	AggregateModel
	CompanyID                uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_payments_company_number,priority:1"`
	BranchID                 *uuid.UUID                  `gorm:"type:uuid;index"`
	CreatedBy                *uuid.UUID                  `gorm:"type:uuid"`
	PaymentNumber            string                      `gorm:"type:varchar(50);not null;uniqueIndex:idx_payments_company_number,priority:2"`
	Type                     settlement.PaymentType      `gorm:"type:varchar(30);not null;index"`
	Direction                settlement.PaymentDirection `gorm:"type:varchar(20);not null;index"`
	PartyID                  *uuid.UUID                  `gorm:"type:uuid;index"`
	CashboxID                *uuid.UUID                  `gorm:"type:uuid;index"`
	BankAccountID            *uuid.UUID                  `gorm:"type:uuid;index"`
	DestinationCashboxID     *uuid.UUID                  `gorm:"type:uuid;index"`
	DestinationBankAccountID *uuid.UUID                  `gorm:"type:uuid"`
	PaymentDate              time.Time                   `gorm:"type:date;not null;index"`
	Amount                   decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	FeeAmount                decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	NetAmount                decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount          decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0"`
	Status                   settlement.PaymentStatus    `gorm:"type:varchar(20);not null;index"`
	ReversedPaymentID        *uuid.UUID                  `gorm:"type:uuid"`
	ReversalPaymentID        *uuid.UUID                  `gorm:"type:uuid"`
	ReferenceType            string                      `gorm:"type:varchar(50)"`
	ReferenceID              *uuid.UUID                  `gorm:"type:uuid"`
	Currency                 string                      `gorm:"type:varchar(3);not null"`
	ExchangeRate             decimal.Decimal             `gorm:"type:decimal(18,6);not null;default:1"`
	Description              string                      `gorm:"type:varchar(500)"`
	Notes                    string                      `gorm:"type:text"`
	CancelledAt              *time.Time
	ReversedAt               *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *settlement.Payment {
	return &settlement.Payment{
		CompanyAggregateRoot:     companyRoot(m.AggregateModel, m.CompanyID, m.BranchID, m.CreatedBy),
		PaymentNumber:            m.PaymentNumber,
		Type:                     m.Type,
		Direction:                m.Direction,
		PartyID:                  m.PartyID,
		CashboxID:                m.CashboxID,
		BankAccountID:            m.BankAccountID,
		DestinationCashboxID:     m.DestinationCashboxID,
		DestinationBankAccountID: m.DestinationBankAccountID,
		PaymentDate:              settlement.DateOnly(m.PaymentDate),
		Amount:                   m.Amount,
		FeeAmount:                m.FeeAmount,
		NetAmount:                m.NetAmount,
		AllocatedAmount:          m.AllocatedAmount,
		Status:                   m.Status,
		ReversedPaymentID:        m.ReversedPaymentID,
		ReversalPaymentID:        m.ReversalPaymentID,
		ReferenceType:            m.ReferenceType,
		ReferenceID:              m.ReferenceID,
		Currency:                 m.Currency,
		ExchangeRate:             m.ExchangeRate,
		Description:              m.Description,
		Notes:                    m.Notes,
		CancelledAt:              m.CancelledAt,
		ReversedAt:               m.ReversedAt,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *settlement.Payment) *PaymentModel {
	m := &PaymentModel{
		CompanyID:                p.CompanyID,
		BranchID:                 p.BranchID,
		CreatedBy:                p.CreatedBy,
		PaymentNumber:            p.PaymentNumber,
		Type:                     p.Type,
		Direction:                p.Direction,
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
		Status:                   p.Status,
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
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// AllocationModel links an amount of a payment to a document.
// Rows are never deleted; cancellation flips the status.
type AllocationModel struct {
	BaseModel
	CompanyID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	PaymentID      uuid.UUID                   `gorm:"type:uuid;not null;index:idx_payment_allocations_payment_status,priority:1"`
	DocumentID     uuid.UUID                   `gorm:"type:uuid;not null;index:idx_payment_allocations_document_status,priority:1"`
	Amount         decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	AllocationDate time.Time                   `gorm:"type:date;not null"`
	Status         settlement.AllocationStatus `gorm:"type:varchar(20);not null;index:idx_payment_allocations_payment_status,priority:2;index:idx_payment_allocations_document_status,priority:2"`
	Notes          string                      `gorm:"type:text"`
	CreatedBy      *uuid.UUID                  `gorm:"type:uuid"`
	CancelledAt    *time.Time
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain PaymentAllocation
func (m *AllocationModel) ToDomain() *settlement.PaymentAllocation {
	return &settlement.PaymentAllocation{
		BaseEntity:     m.BaseModel.ToDomain(),
		CompanyID:      m.CompanyID,
		PaymentID:      m.PaymentID,
		DocumentID:     m.DocumentID,
		Amount:         m.Amount,
		AllocationDate: settlement.DateOnly(m.AllocationDate),
		Status:         m.Status,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		CancelledAt:    m.CancelledAt,
	}
}

// AllocationModelFromDomain creates a persistence model from a domain PaymentAllocation
func AllocationModelFromDomain(a *settlement.PaymentAllocation) *AllocationModel {
	m := &AllocationModel{
		CompanyID:      a.CompanyID,
		PaymentID:      a.PaymentID,
		DocumentID:     a.DocumentID,
		Amount:         a.Amount,
		AllocationDate: a.AllocationDate,
		Status:         a.Status,
		Notes:          a.Notes,
		CreatedBy:      a.CreatedBy,
		CancelledAt:    a.CancelledAt,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := settlement.DateOnly(*t)
	return &d
}
