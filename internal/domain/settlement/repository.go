package settlement

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodRepository persists accounting periods
type PeriodRepository interface {
	// Find returns shared.ErrNotFound when the month has no row
	Find(ctx context.Context, companyID uuid.UUID, year, month int) (*Period, error)
	FindForUpdate(ctx context.Context, companyID uuid.UUID, year, month int) (*Period, error)
	// CreateIfAbsent inserts the period unless a row for the same month already exists.
	// It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, period *Period) (bool, error)
	Save(ctx context.Context, period *Period) error
	ListByYear(ctx context.Context, companyID uuid.UUID, year int) ([]Period, error)
}

// DocumentFilter narrows document listings
type DocumentFilter struct {
	shared.Filter
	PartyID   *uuid.UUID
	Type      DocumentType
	Direction DocumentDirection
	Statuses  []DocumentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
}

// DocumentRepository persists documents and their lines
type DocumentRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Document, error)
	// FindByIDForUpdate reads the row under a write lock held until the transaction ends
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Document, error)
	FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*Document, error)
	// Create returns *NumberConflictError when the number is already taken
	Create(ctx context.Context, doc *Document) error
	// Save writes every field and replaces lines, guarded by version
	Save(ctx context.Context, doc *Document) error
	// UpdateSettlement writes only the cached allocated amount and status
	UpdateSettlement(ctx context.Context, doc *Document) error
	List(ctx context.Context, companyID uuid.UUID, filter DocumentFilter) ([]Document, int64, error)
	// FindOpen returns pending or partial documents of the party in the given directions
	FindOpen(ctx context.Context, companyID, partyID uuid.UUID, directions []DocumentDirection) ([]Document, error)
	// MaxSequence returns the highest numeric counter after prefix, or 0 when none exists.
	// Numbers whose suffix is not all digits are ignored.
	MaxSequence(ctx context.Context, companyID uuid.UUID, prefix string) (int64, error)
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	shared.Filter
	PartyID   *uuid.UUID
	Type      PaymentType
	Direction PaymentDirection
	Statuses  []PaymentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)
	Create(ctx context.Context, payment *Payment) error
	Save(ctx context.Context, payment *Payment) error
	UpdateSettlement(ctx context.Context, payment *Payment) error
	List(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) ([]Payment, int64, error)
	MaxSequence(ctx context.Context, companyID uuid.UUID, prefix string) (int64, error)
	// CashboxBalance sums confirmed inflows minus outflows through the cashbox
	CashboxBalance(ctx context.Context, companyID, cashboxID uuid.UUID) (decimal.Decimal, error)
}

// AllocationRepository persists payment allocations
type AllocationRepository interface {
	Create(ctx context.Context, allocation *PaymentAllocation) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*PaymentAllocation, error)
	FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*PaymentAllocation, error)
	// Save persists the cancellation of an allocation
	Save(ctx context.Context, allocation *PaymentAllocation) error
	ListByPayment(ctx context.Context, paymentID uuid.UUID, activeOnly bool) ([]PaymentAllocation, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID, activeOnly bool) ([]PaymentAllocation, error)
	SumActiveByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)
	SumActiveByDocument(ctx context.Context, documentID uuid.UUID) (decimal.Decimal, error)
}

// PartyRepository is the counterparty directory
type PartyRepository interface {
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Party, error)
	Create(ctx context.Context, party *Party) error
	List(ctx context.Context, companyID uuid.UUID) ([]Party, error)
}

// AccountRepository is the cashbox and bank account directory
type AccountRepository interface {
	// FindByID looks across companies so ownership can be reported as a validation failure
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Create(ctx context.Context, account *Account) error
	List(ctx context.Context, companyID uuid.UUID, kind AccountKind) ([]Account, error)
}
