package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentStatus represents the settlement state of a document
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusPartial   DocumentStatus = "partial"
	DocumentStatusSettled   DocumentStatus = "settled"
	DocumentStatusCancelled DocumentStatus = "cancelled"
	DocumentStatusReversed  DocumentStatus = "reversed"
)

func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusPending, DocumentStatusPartial,
		DocumentStatusSettled, DocumentStatusCancelled, DocumentStatusReversed:
		return true
	}
	return false
}

func (s DocumentStatus) String() string { return string(s) }

// IsTerminal returns true for the explicit overrides that allocation never touches
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCancelled || s == DocumentStatusReversed
}

// CanAllocate returns true if payments can be allocated in this status
func (s DocumentStatus) CanAllocate() bool {
	return s == DocumentStatusPending || s == DocumentStatusPartial
}

// DefaultCurrency is used when a document or payment omits its currency
const DefaultCurrency = "IDR"

// DocumentLine is a priced line item attached to a document
type DocumentLine struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	LineNo      int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxAmount   decimal.Decimal
	LineTotal   decimal.Decimal
}

// NewDocumentLine computes the line total as quantity × unit price + tax
func NewDocumentLine(lineNo int, description string, quantity, unitPrice, tax decimal.Decimal) (DocumentLine, error) {
	if description == "" {
		return DocumentLine{}, shared.NewValidationError("LINE_DESCRIPTION_REQUIRED", "line %d: description is required", lineNo)
	}
	if !quantity.IsPositive() {
		return DocumentLine{}, shared.NewValidationError("LINE_QUANTITY_INVALID", "line %d: quantity must be positive", lineNo)
	}
	if unitPrice.IsNegative() {
		return DocumentLine{}, shared.NewValidationError("LINE_PRICE_INVALID", "line %d: unit price cannot be negative", lineNo)
	}
	if tax.IsNegative() {
		return DocumentLine{}, shared.NewValidationError("LINE_TAX_INVALID", "line %d: tax amount cannot be negative", lineNo)
	}
	return DocumentLine{
		ID:          uuid.New(),
		LineNo:      lineNo,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxAmount:   tax,
		LineTotal:   quantity.Mul(unitPrice).Add(tax),
	}, nil
}

// Document is a recorded obligation: money the company owes or is owed
type Document struct {
	shared.CompanyAggregateRoot
	DocumentNumber     string
	Type               DocumentType
	Direction          DocumentDirection
	PartyID            uuid.UUID
	DocumentDate       time.Time
	DueDate            *time.Time
	TotalAmount        decimal.Decimal
	AllocatedAmount    decimal.Decimal
	Status             DocumentStatus
	ReversedDocumentID *uuid.UUID
	ReversalDocumentID *uuid.UUID
	CategoryID         *uuid.UUID
	Currency           string
	ExchangeRate       decimal.Decimal
	Description        string
	Notes              string
	CancelledAt        *time.Time
	ReversedAt         *time.Time
	Lines              []DocumentLine
}

// NewDocumentParams carries the fields needed to create a document
type NewDocumentParams struct {
	CompanyID    uuid.UUID
	BranchID     *uuid.UUID
	Number       string
	Type         DocumentType
	Direction    DocumentDirection
	PartyID      uuid.UUID
	DocumentDate time.Time
	DueDate      *time.Time
	TotalAmount  decimal.Decimal
	CategoryID   *uuid.UUID
	Currency     string
	ExchangeRate decimal.Decimal
	Description  string
	Notes        string
	Lines        []DocumentLine
	Draft        bool
}

// NewDocument validates params and creates a pending (or draft) document.
// When lines are given the total is their sum; an explicit total must agree.
func NewDocument(p NewDocumentParams) (*Document, error) {
	if p.CompanyID == uuid.Nil {
		return nil, shared.NewValidationError("COMPANY_REQUIRED", "company is required")
	}
	if p.PartyID == uuid.Nil {
		return nil, shared.NewValidationError("PARTY_REQUIRED", "party is required")
	}
	if p.DocumentDate.IsZero() {
		return nil, shared.NewValidationError("DOCUMENT_DATE_REQUIRED", "document date is required")
	}
	direction, err := ResolveDocumentDirection(p.Type, p.Direction)
	if err != nil {
		return nil, err
	}
	total, err := resolveTotal(p.TotalAmount, p.Lines)
	if err != nil {
		return nil, err
	}
	docDate := DateOnly(p.DocumentDate)
	if p.DueDate != nil {
		due := DateOnly(*p.DueDate)
		if due.Before(docDate) {
			return nil, shared.NewValidationError("DUE_DATE_INVALID", "due date cannot be before document date")
		}
		p.DueDate = &due
	}
	rate, err := resolveExchangeRate(p.ExchangeRate)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(p.CompanyID, p.BranchID),
		DocumentNumber:       p.Number,
		Type:                 p.Type,
		Direction:            direction,
		PartyID:              p.PartyID,
		DocumentDate:         docDate,
		DueDate:              p.DueDate,
		TotalAmount:          total,
		AllocatedAmount:      decimal.Zero,
		Status:               DocumentStatusPending,
		CategoryID:           p.CategoryID,
		Currency:             currencyOrDefault(p.Currency),
		ExchangeRate:         rate,
		Description:          p.Description,
		Notes:                p.Notes,
	}
	if p.Draft {
		doc.Status = DocumentStatusDraft
	}
	doc.setLines(p.Lines)
	return doc, nil
}

func resolveTotal(explicit decimal.Decimal, lines []DocumentLine) (decimal.Decimal, error) {
	if len(lines) == 0 {
		if !explicit.IsPositive() {
			return decimal.Zero, shared.NewValidationError("AMOUNT_INVALID", "total amount must be positive")
		}
		return explicit, nil
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal)
	}
	if !sum.IsPositive() {
		return decimal.Zero, shared.NewValidationError("AMOUNT_INVALID", "line totals must sum to a positive amount")
	}
	if !explicit.IsZero() && !explicit.Equal(sum) {
		return decimal.Zero, shared.NewValidationError("TOTAL_MISMATCH",
			"total amount %s does not match line total %s", explicit, sum)
	}
	return sum, nil
}

func resolveExchangeRate(rate decimal.Decimal) (decimal.Decimal, error) {
	if rate.IsZero() {
		return decimal.NewFromInt(1), nil
	}
	if rate.IsNegative() {
		return decimal.Zero, shared.NewValidationError("EXCHANGE_RATE_INVALID", "exchange rate must be positive")
	}
	return rate, nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return DefaultCurrency
	}
	return c
}

func (d *Document) setLines(lines []DocumentLine) {
	d.Lines = make([]DocumentLine, len(lines))
	for i, l := range lines {
		l.DocumentID = d.ID
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		d.Lines[i] = l
	}
}

// AbsTotal is the magnitude allocations are measured against
func (d *Document) AbsTotal() decimal.Decimal {
	return d.TotalAmount.Abs()
}

// UnpaidAmount is what remains to be settled
func (d *Document) UnpaidAmount() decimal.Decimal {
	rest := d.AbsTotal().Sub(d.AllocatedAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// DeriveStatus applies the settlement rule to an allocated sum, leaving overrides alone
func (d *Document) DeriveStatus(allocated decimal.Decimal) DocumentStatus {
	if d.Status.IsTerminal() {
		return d.Status
	}
	switch {
	case allocated.IsZero() && d.Status == DocumentStatusDraft:
		return DocumentStatusDraft
	case allocated.IsZero():
		return DocumentStatusPending
	case allocated.GreaterThanOrEqual(d.AbsTotal()):
		return DocumentStatusSettled
	default:
		return DocumentStatusPartial
	}
}

// ApplyAllocatedAmount records a new allocation sum and re-derives status.
// It is the only mutation allowed on a document whose period is locked.
func (d *Document) ApplyAllocatedAmount(allocated decimal.Decimal, now time.Time) error {
	if allocated.IsNegative() {
		return shared.NewValidationError("ALLOCATION_NEGATIVE", "document %s: allocated amount cannot be negative", d.DocumentNumber)
	}
	if allocated.GreaterThan(d.AbsTotal()) {
		return shared.NewValidationError("OVER_ALLOCATED",
			"document %s: allocated %s exceeds total %s", d.DocumentNumber, allocated, d.AbsTotal())
	}
	d.AllocatedAmount = allocated
	d.Status = d.DeriveStatus(allocated)
	d.Touch(now)
	d.IncrementVersion()
	return nil
}

// EnsureAllocatable checks the document can take an allocation of amount
func (d *Document) EnsureAllocatable(amount decimal.Decimal) error {
	if !d.Status.CanAllocate() {
		return shared.NewStateError("DOCUMENT_NOT_ALLOCATABLE",
			"document %s is %s and cannot be allocated", d.DocumentNumber, d.Status)
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("AMOUNT_INVALID", "allocation amount must be positive")
	}
	if amount.GreaterThan(d.UnpaidAmount()) {
		return shared.NewValidationError("AMOUNT_EXCEEDS_UNPAID",
			"document %s: allocation %s exceeds unpaid amount %s", d.DocumentNumber, amount, d.UnpaidAmount())
	}
	return nil
}

// DocumentChanges lists editable fields; nil means unchanged
type DocumentChanges struct {
	PartyID      *uuid.UUID
	DocumentDate *time.Time
	DueDate      *time.Time
	TotalAmount  *decimal.Decimal
	CategoryID   *uuid.UUID
	Currency     *string
	ExchangeRate *decimal.Decimal
	Description  *string
	Notes        *string
	Lines        []DocumentLine
	ReplaceLines bool
}

// ApplyChanges edits the document's own fields. Callers check period and allocation rules first.
func (d *Document) ApplyChanges(c DocumentChanges, now time.Time) error {
	if d.Status.IsTerminal() || d.Status == DocumentStatusSettled {
		return shared.NewStateError("DOCUMENT_NOT_EDITABLE", "document %s is %s and cannot be edited", d.DocumentNumber, d.Status)
	}
	if c.PartyID != nil {
		if *c.PartyID == uuid.Nil {
			return shared.NewValidationError("PARTY_REQUIRED", "party is required")
		}
		d.PartyID = *c.PartyID
	}
	if c.DocumentDate != nil {
		d.DocumentDate = DateOnly(*c.DocumentDate)
	}
	if c.DueDate != nil {
		due := DateOnly(*c.DueDate)
		d.DueDate = &due
	}
	if d.DueDate != nil && d.DueDate.Before(d.DocumentDate) {
		return shared.NewValidationError("DUE_DATE_INVALID", "due date cannot be before document date")
	}
	if c.ReplaceLines {
		total, err := resolveTotal(decimal.Zero, c.Lines)
		if err != nil && len(c.Lines) > 0 {
			return err
		}
		d.setLines(c.Lines)
		if len(c.Lines) > 0 {
			d.TotalAmount = total
		}
	}
	if c.TotalAmount != nil {
		if len(d.Lines) > 0 && !c.TotalAmount.Equal(d.TotalAmount) {
			return shared.NewValidationError("TOTAL_MISMATCH", "total amount is derived from lines")
		}
		if !c.TotalAmount.IsPositive() {
			return shared.NewValidationError("AMOUNT_INVALID", "total amount must be positive")
		}
		d.TotalAmount = *c.TotalAmount
	}
	if c.CategoryID != nil {
		d.CategoryID = c.CategoryID
	}
	if c.Currency != nil {
		d.Currency = currencyOrDefault(*c.Currency)
	}
	if c.ExchangeRate != nil {
		rate, err := resolveExchangeRate(*c.ExchangeRate)
		if err != nil {
			return err
		}
		d.ExchangeRate = rate
	}
	if c.Description != nil {
		d.Description = *c.Description
	}
	if c.Notes != nil {
		d.Notes = *c.Notes
	}
	d.Touch(now)
	d.IncrementVersion()
	return nil
}

// Post promotes a draft to pending
func (d *Document) Post(now time.Time) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewStateError("DOCUMENT_NOT_DRAFT", "document %s is %s, only drafts can be posted", d.DocumentNumber, d.Status)
	}
	d.Status = DocumentStatusPending
	d.Touch(now)
	d.IncrementVersion()
	return nil
}

// Cancel terminates a document that has never been settled
func (d *Document) Cancel(reason string, now time.Time) error {
	switch d.Status {
	case DocumentStatusCancelled:
		return shared.NewStateError("DOCUMENT_ALREADY_CANCELLED", "document %s is already cancelled", d.DocumentNumber)
	case DocumentStatusReversed:
		return shared.NewStateError("DOCUMENT_REVERSED", "document %s is reversed and cannot be cancelled", d.DocumentNumber)
	case DocumentStatusSettled:
		return shared.NewStateError("DOCUMENT_SETTLED", "document %s is settled and cannot be cancelled", d.DocumentNumber)
	}
	if d.AllocatedAmount.IsPositive() {
		return shared.NewStateError("DOCUMENT_HAS_ALLOCATIONS", "document %s has active allocations", d.DocumentNumber)
	}
	d.Status = DocumentStatusCancelled
	d.CancelledAt = &now
	d.Notes = AppendNote(d.Notes, reason)
	d.Touch(now)
	d.IncrementVersion()
	return nil
}

// EnsureReversible checks the document can still be reversed
func (d *Document) EnsureReversible() error {
	switch d.Status {
	case DocumentStatusCancelled:
		return shared.NewStateError("DOCUMENT_ALREADY_CANCELLED", "document %s is cancelled and cannot be reversed", d.DocumentNumber)
	case DocumentStatusReversed:
		return shared.NewStateError("DOCUMENT_ALREADY_REVERSED", "document %s is already reversed", d.DocumentNumber)
	}
	return nil
}

// Reverse marks the document reversed and returns its negated mirror dated today.
// Active allocations must already have been cancelled.
func (d *Document) Reverse(mirrorNumber string, today time.Time, reason string, now time.Time) (*Document, error) {
	if err := d.EnsureReversible(); err != nil {
		return nil, err
	}
	if d.AllocatedAmount.IsPositive() {
		return nil, shared.NewStateError("DOCUMENT_HAS_ALLOCATIONS", "document %s still has active allocations", d.DocumentNumber)
	}

	mirror := &Document{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(d.CompanyID, d.BranchID),
		DocumentNumber:       mirrorNumber,
		Type:                 d.Type,
		Direction:            d.Direction,
		PartyID:              d.PartyID,
		DocumentDate:         DateOnly(today),
		DueDate:              d.DueDate,
		TotalAmount:          d.TotalAmount.Neg(),
		AllocatedAmount:      decimal.Zero,
		Status:               DocumentStatusReversed,
		ReversedDocumentID:   &d.ID,
		CategoryID:           d.CategoryID,
		Currency:             d.Currency,
		ExchangeRate:         d.ExchangeRate,
		Description:          d.Description,
		Notes:                AppendNote("Reversal of "+d.DocumentNumber, reason),
		ReversedAt:           &now,
	}
	mirror.CreatedAt = now
	mirror.UpdatedAt = now
	lines := make([]DocumentLine, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = DocumentLine{
			LineNo:      l.LineNo,
			Description: l.Description,
			Quantity:    l.Quantity.Neg(),
			UnitPrice:   l.UnitPrice,
			TaxAmount:   l.TaxAmount.Neg(),
			LineTotal:   l.LineTotal.Neg(),
		}
	}
	mirror.setLines(lines)

	d.Status = DocumentStatusReversed
	d.ReversalDocumentID = &mirror.ID
	d.ReversedAt = &now
	d.Notes = AppendNote(d.Notes, reason)
	d.Touch(now)
	d.IncrementVersion()
	return mirror, nil
}
