package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStatus represents whether an allocation still counts toward settlement
type AllocationStatus string

const (
	AllocationStatusActive    AllocationStatus = "active"
	AllocationStatusCancelled AllocationStatus = "cancelled"
)

func (s AllocationStatus) IsValid() bool {
	return s == AllocationStatusActive || s == AllocationStatusCancelled
}

func (s AllocationStatus) String() string { return string(s) }

// PaymentAllocation assigns part of a payment to part of a document.
// Rows are never edited except for the one-way move to cancelled.
type PaymentAllocation struct {
	shared.BaseEntity
	CompanyID      uuid.UUID
	PaymentID      uuid.UUID
	DocumentID     uuid.UUID
	Amount         decimal.Decimal
	AllocationDate time.Time
	Status         AllocationStatus
	Notes          string
	CreatedBy      *uuid.UUID
	CancelledAt    *time.Time
}

// AllocationLine is one requested settlement in an allocate call
type AllocationLine struct {
	DocumentID     uuid.UUID
	Amount         decimal.Decimal
	AllocationDate *time.Time
	Notes          string
}

// NewPaymentAllocation creates an active allocation
func NewPaymentAllocation(payment *Payment, document *Document, amount decimal.Decimal, date time.Time, notes string) (*PaymentAllocation, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("AMOUNT_INVALID", "allocation amount must be positive")
	}
	if payment.CompanyID != document.CompanyID {
		return nil, shared.NewValidationError("COMPANY_MISMATCH",
			"payment %s and document %s belong to different companies", payment.PaymentNumber, document.DocumentNumber)
	}
	return &PaymentAllocation{
		BaseEntity:     shared.NewBaseEntity(),
		CompanyID:      payment.CompanyID,
		PaymentID:      payment.ID,
		DocumentID:     document.ID,
		Amount:         amount,
		AllocationDate: DateOnly(date),
		Status:         AllocationStatusActive,
		Notes:          notes,
	}, nil
}

// IsActive reports whether the allocation counts toward settlement
func (a *PaymentAllocation) IsActive() bool {
	return a.Status == AllocationStatusActive
}

// Cancel retires the allocation, keeping the row as history
func (a *PaymentAllocation) Cancel(reason string, now time.Time) error {
	if a.Status == AllocationStatusCancelled {
		return shared.NewStateError("ALLOCATION_ALREADY_CANCELLED", "allocation %s is already cancelled", a.ID)
	}
	a.Status = AllocationStatusCancelled
	a.CancelledAt = &now
	a.Notes = AppendNote(a.Notes, reason)
	a.Touch(now)
	return nil
}

// CheckSettlementPair validates that payment may settle document: party and direction
func CheckSettlementPair(payment *Payment, document *Document) error {
	if payment.PartyID != nil && *payment.PartyID != document.PartyID {
		return shared.NewValidationError("PARTY_MISMATCH",
			"document %s belongs to a different party than payment %s", document.DocumentNumber, payment.PaymentNumber)
	}
	if !CanSettle(payment.Direction, document.Direction) {
		return shared.NewValidationError("DIRECTION_MISMATCH",
			"%s payment %s cannot settle %s document %s",
			payment.Direction, payment.PaymentNumber, document.Direction, document.DocumentNumber)
	}
	return nil
}
