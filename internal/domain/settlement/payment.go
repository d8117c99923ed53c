package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusReversed  PaymentStatus = "reversed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusCancelled, PaymentStatusReversed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string { return string(s) }

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCancelled || s == PaymentStatusReversed
}

// Payment is a recorded cash or bank movement
type Payment struct {
	shared.CompanyAggregateRoot
	PaymentNumber            string
	Type                     PaymentType
	Direction                PaymentDirection
	PartyID                  *uuid.UUID
	CashboxID                *uuid.UUID
	BankAccountID            *uuid.UUID
	DestinationCashboxID     *uuid.UUID
	DestinationBankAccountID *uuid.UUID
	PaymentDate              time.Time
	Amount                   decimal.Decimal
	FeeAmount                decimal.Decimal
	NetAmount                decimal.Decimal
	AllocatedAmount          decimal.Decimal
	Status                   PaymentStatus
	ReversedPaymentID        *uuid.UUID
	ReversalPaymentID        *uuid.UUID
	ReferenceType            string
	ReferenceID              *uuid.UUID
	Currency                 string
	ExchangeRate             decimal.Decimal
	Description              string
	Notes                    string
	CancelledAt              *time.Time
	ReversedAt               *time.Time
}

// NewPaymentParams carries the fields needed to create a payment
type NewPaymentParams struct {
	CompanyID                uuid.UUID
	BranchID                 *uuid.UUID
	Number                   string
	Type                     PaymentType
	Direction                PaymentDirection
	PartyID                  *uuid.UUID
	CashboxID                *uuid.UUID
	BankAccountID            *uuid.UUID
	DestinationCashboxID     *uuid.UUID
	DestinationBankAccountID *uuid.UUID
	PaymentDate              time.Time
	Amount                   decimal.Decimal
	FeeAmount                decimal.Decimal
	ReferenceType            string
	ReferenceID              *uuid.UUID
	Currency                 string
	ExchangeRate             decimal.Decimal
	Description              string
	Notes                    string
}

// NewPayment validates params and creates a confirmed payment.
// Account existence and balance are checked by the caller against the directories.
func NewPayment(p NewPaymentParams) (*Payment, error) {
	if p.CompanyID == uuid.Nil {
		return nil, shared.NewValidationError("COMPANY_REQUIRED", "company is required")
	}
	if p.PaymentDate.IsZero() {
		return nil, shared.NewValidationError("PAYMENT_DATE_REQUIRED", "payment date is required")
	}
	direction, err := ResolvePaymentDirection(p.Type, p.Direction)
	if err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewValidationError("AMOUNT_INVALID", "payment amount must be positive")
	}
	if err := validateFee(p.Amount, p.FeeAmount); err != nil {
		return nil, err
	}
	rate, err := resolveExchangeRate(p.ExchangeRate)
	if err != nil {
		return nil, err
	}

	pay := &Payment{
		CompanyAggregateRoot:     shared.NewCompanyAggregateRoot(p.CompanyID, p.BranchID),
		PaymentNumber:            p.Number,
		Type:                     p.Type,
		Direction:                direction,
		PartyID:                  p.PartyID,
		CashboxID:                p.CashboxID,
		BankAccountID:            p.BankAccountID,
		DestinationCashboxID:     p.DestinationCashboxID,
		DestinationBankAccountID: p.DestinationBankAccountID,
		PaymentDate:              DateOnly(p.PaymentDate),
		Amount:                   p.Amount,
		FeeAmount:                p.FeeAmount,
		NetAmount:                p.Amount.Sub(p.FeeAmount),
		AllocatedAmount:          decimal.Zero,
		Status:                   PaymentStatusConfirmed,
		ReferenceType:            p.ReferenceType,
		ReferenceID:              p.ReferenceID,
		Currency:                 currencyOrDefault(p.Currency),
		ExchangeRate:             rate,
		Description:              p.Description,
		Notes:                    p.Notes,
	}
	if err := pay.validateAccounts(); err != nil {
		return nil, err
	}
	return pay, nil
}

func validateFee(amount, fee decimal.Decimal) error {
	if fee.IsNegative() {
		return shared.NewValidationError("FEE_INVALID", "fee amount cannot be negative")
	}
	if fee.GreaterThan(amount) {
		return shared.NewValidationError("FEE_EXCEEDS_AMOUNT", "fee amount %s exceeds payment amount %s", fee, amount)
	}
	return nil
}

// validateAccounts checks the account legs required by the payment type are present and no others
func (p *Payment) validateAccounts() error {
	spec, _ := p.Type.Spec()
	if err := requireLeg("source", spec.Source, p.CashboxID, p.BankAccountID); err != nil {
		return err
	}
	if err := requireLeg("destination", spec.Destination, p.DestinationCashboxID, p.DestinationBankAccountID); err != nil {
		return err
	}
	if spec.IsTransfer() {
		src, dst := p.SourceAccountID(), p.DestinationAccountID()
		if src != nil && dst != nil && *src == *dst {
			return shared.NewValidationError("TRANSFER_SAME_ACCOUNT", "transfer source and destination must differ")
		}
	}
	return nil
}

func requireLeg(leg string, kind AccountKind, cashbox, bank *uuid.UUID) error {
	switch kind {
	case AccountCashbox:
		if cashbox == nil {
			return shared.NewValidationError("ACCOUNT_REQUIRED", "%s cashbox is required", leg)
		}
		if bank != nil {
			return shared.NewValidationError("ACCOUNT_CONFLICT", "%s must be a cashbox, not a bank account", leg)
		}
	case AccountBank:
		if bank == nil {
			return shared.NewValidationError("ACCOUNT_REQUIRED", "%s bank account is required", leg)
		}
		if cashbox != nil {
			return shared.NewValidationError("ACCOUNT_CONFLICT", "%s must be a bank account, not a cashbox", leg)
		}
	default:
		if cashbox != nil || bank != nil {
			return shared.NewValidationError("ACCOUNT_NOT_ALLOWED", "payment type takes no %s account", leg)
		}
	}
	return nil
}

// SourceAccountID returns whichever source account is set
func (p *Payment) SourceAccountID() *uuid.UUID {
	if p.CashboxID != nil {
		return p.CashboxID
	}
	return p.BankAccountID
}

// DestinationAccountID returns whichever destination account is set
func (p *Payment) DestinationAccountID() *uuid.UUID {
	if p.DestinationCashboxID != nil {
		return p.DestinationCashboxID
	}
	return p.DestinationBankAccountID
}

// UnallocatedAmount is what the payment can still settle
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	rest := p.Amount.Sub(p.AllocatedAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// EnsureAllocatable checks the payment can fund allocations
func (p *Payment) EnsureAllocatable() error {
	if p.Status != PaymentStatusConfirmed {
		return shared.NewStateError("PAYMENT_NOT_CONFIRMED", "payment %s is %s, only confirmed payments can be allocated", p.PaymentNumber, p.Status)
	}
	if !p.UnallocatedAmount().IsPositive() {
		return shared.NewValidationError("PAYMENT_FULLY_ALLOCATED", "payment %s has no unallocated amount", p.PaymentNumber)
	}
	return nil
}

// ApplyAllocatedAmount caches the allocation sum
func (p *Payment) ApplyAllocatedAmount(allocated decimal.Decimal, now time.Time) error {
	if allocated.IsNegative() {
		return shared.NewValidationError("ALLOCATION_NEGATIVE", "payment %s: allocated amount cannot be negative", p.PaymentNumber)
	}
	if allocated.GreaterThan(p.Amount.Abs()) {
		return shared.NewValidationError("OVER_ALLOCATED",
			"payment %s: allocated %s exceeds amount %s", p.PaymentNumber, allocated, p.Amount)
	}
	p.AllocatedAmount = allocated
	p.Touch(now)
	p.IncrementVersion()
	return nil
}

// PaymentChanges lists editable fields; nil means unchanged
type PaymentChanges struct {
	PartyID       *uuid.UUID
	PaymentDate   *time.Time
	Amount        *decimal.Decimal
	FeeAmount     *decimal.Decimal
	ReferenceType *string
	ReferenceID   *uuid.UUID
	Currency      *string
	ExchangeRate  *decimal.Decimal
	Description   *string
	Notes         *string
}

// ApplyChanges edits the payment and recomputes the net amount
func (p *Payment) ApplyChanges(c PaymentChanges, now time.Time) error {
	if p.Status.IsTerminal() {
		return shared.NewStateError("PAYMENT_NOT_EDITABLE", "payment %s is %s and cannot be edited", p.PaymentNumber, p.Status)
	}
	amount, fee := p.Amount, p.FeeAmount
	if c.Amount != nil {
		amount = *c.Amount
	}
	if c.FeeAmount != nil {
		fee = *c.FeeAmount
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("AMOUNT_INVALID", "payment amount must be positive")
	}
	if amount.LessThan(p.AllocatedAmount) {
		return shared.NewValidationError("AMOUNT_BELOW_ALLOCATED",
			"payment %s: amount %s is below allocated %s", p.PaymentNumber, amount, p.AllocatedAmount)
	}
	if err := validateFee(amount, fee); err != nil {
		return err
	}
	if c.PartyID != nil {
		p.PartyID = c.PartyID
	}
	if c.PaymentDate != nil {
		p.PaymentDate = DateOnly(*c.PaymentDate)
	}
	if c.ReferenceType != nil {
		p.ReferenceType = *c.ReferenceType
	}
	if c.ReferenceID != nil {
		p.ReferenceID = c.ReferenceID
	}
	if c.Currency != nil {
		p.Currency = currencyOrDefault(*c.Currency)
	}
	if c.ExchangeRate != nil {
		rate, err := resolveExchangeRate(*c.ExchangeRate)
		if err != nil {
			return err
		}
		p.ExchangeRate = rate
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Notes != nil {
		p.Notes = *c.Notes
	}
	p.Amount = amount
	p.FeeAmount = fee
	p.NetAmount = amount.Sub(fee)
	p.Touch(now)
	p.IncrementVersion()
	return nil
}

// Cancel terminates a payment that funds no active allocation
func (p *Payment) Cancel(reason string, now time.Time) error {
	switch p.Status {
	case PaymentStatusCancelled:
		return shared.NewStateError("PAYMENT_ALREADY_CANCELLED", "payment %s is already cancelled", p.PaymentNumber)
	case PaymentStatusReversed:
		return shared.NewStateError("PAYMENT_REVERSED", "payment %s is reversed and cannot be cancelled", p.PaymentNumber)
	}
	if p.AllocatedAmount.IsPositive() {
		return shared.NewStateError("PAYMENT_HAS_ALLOCATIONS", "payment %s has active allocations", p.PaymentNumber)
	}
	p.Status = PaymentStatusCancelled
	p.CancelledAt = &now
	p.Notes = AppendNote(p.Notes, reason)
	p.Touch(now)
	p.IncrementVersion()
	return nil
}

// EnsureReversible checks the payment can still be reversed
func (p *Payment) EnsureReversible() error {
	switch p.Status {
	case PaymentStatusCancelled:
		return shared.NewStateError("PAYMENT_ALREADY_CANCELLED", "payment %s is cancelled and cannot be reversed", p.PaymentNumber)
	case PaymentStatusReversed:
		return shared.NewStateError("PAYMENT_ALREADY_REVERSED", "payment %s is already reversed", p.PaymentNumber)
	}
	return nil
}

// Reverse marks the payment reversed and returns its mirror in the opposite direction
func (p *Payment) Reverse(mirrorNumber string, today time.Time, reason string, now time.Time) (*Payment, error) {
	if err := p.EnsureReversible(); err != nil {
		return nil, err
	}
	if p.AllocatedAmount.IsPositive() {
		return nil, shared.NewStateError("PAYMENT_HAS_ALLOCATIONS", "payment %s still has active allocations", p.PaymentNumber)
	}

	mirror := &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(p.CompanyID, p.BranchID),
		PaymentNumber:        mirrorNumber,
		Type:                 p.Type,
		Direction:            p.Direction.Opposite(),
		PartyID:              p.PartyID,
		CashboxID:            p.CashboxID,
		BankAccountID:        p.BankAccountID,
		PaymentDate:          DateOnly(today),
		Amount:               p.Amount,
		FeeAmount:            p.FeeAmount,
		NetAmount:            p.NetAmount,
		AllocatedAmount:      decimal.Zero,
		Status:               PaymentStatusReversed,
		ReversedPaymentID:    &p.ID,
		ReferenceType:        p.ReferenceType,
		ReferenceID:          p.ReferenceID,
		Currency:             p.Currency,
		ExchangeRate:         p.ExchangeRate,
		Description:          p.Description,
		Notes:                AppendNote("Reversal of "+p.PaymentNumber, reason),
		ReversedAt:           &now,
	}
	mirror.DestinationCashboxID = p.DestinationCashboxID
	mirror.DestinationBankAccountID = p.DestinationBankAccountID
	mirror.CreatedAt = now
	mirror.UpdatedAt = now

	p.Status = PaymentStatusReversed
	p.ReversalPaymentID = &mirror.ID
	p.ReversedAt = &now
	p.Notes = AppendNote(p.Notes, reason)
	p.Touch(now)
	p.IncrementVersion()
	return mirror, nil
}
