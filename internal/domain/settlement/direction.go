// Package settlement holds the obligation-settlement aggregates: accounting
// periods, documents (obligations), payments (cash movements) and the
// allocations that link them.
package settlement

import (
	"github.com/erp/settlement/internal/domain/shared"
)

// DocumentDirection says whether the company owes or is owed
type DocumentDirection string

const (
	DirectionPayable    DocumentDirection = "payable"
	DirectionReceivable DocumentDirection = "receivable"
)

func (d DocumentDirection) IsValid() bool {
	return d == DirectionPayable || d == DirectionReceivable
}

func (d DocumentDirection) String() string { return string(d) }

// PaymentDirection says which way cash moved
type PaymentDirection string

const (
	DirectionIn       PaymentDirection = "in"
	DirectionOut      PaymentDirection = "out"
	DirectionInternal PaymentDirection = "internal"
)

func (d PaymentDirection) IsValid() bool {
	return d == DirectionIn || d == DirectionOut || d == DirectionInternal
}

func (d PaymentDirection) String() string { return string(d) }

// Opposite returns the direction used by a reversal mirror
func (d PaymentDirection) Opposite() PaymentDirection {
	switch d {
	case DirectionIn:
		return DirectionOut
	case DirectionOut:
		return DirectionIn
	default:
		return DirectionInternal
	}
}

// DocumentType identifies the business meaning of an obligation
type DocumentType string

const (
	DocumentTypeSalesInvoice    DocumentType = "sales_invoice"
	DocumentTypePurchaseInvoice DocumentType = "purchase_invoice"
	DocumentTypeExpense         DocumentType = "expense"
	DocumentTypeSalary          DocumentType = "salary"
	DocumentTypeAdvanceGiven    DocumentType = "advance_given"
	DocumentTypeAdvanceReceived DocumentType = "advance_received"
	DocumentTypeDebitNote       DocumentType = "debit_note"
	DocumentTypeCreditNote      DocumentType = "credit_note"
	DocumentTypeOther           DocumentType = "other"
)

// PaymentType identifies the account movement a payment records
type PaymentType string

const (
	PaymentTypeCashIn         PaymentType = "cash_in"
	PaymentTypeCashOut        PaymentType = "cash_out"
	PaymentTypeBankIn         PaymentType = "bank_in"
	PaymentTypeBankOut        PaymentType = "bank_out"
	PaymentTypeCashToBank     PaymentType = "cash_to_bank"
	PaymentTypeBankToCash     PaymentType = "bank_to_cash"
	PaymentTypeBankTransfer   PaymentType = "bank_transfer"
	PaymentTypeInternalOffset PaymentType = "internal_offset"
)

// AccountKind names the account class a payment leg touches
type AccountKind string

const (
	AccountNone    AccountKind = ""
	AccountCashbox AccountKind = "cashbox"
	AccountBank    AccountKind = "bank"
)

// DocumentTypeSpec is one row of the document type table
type DocumentTypeSpec struct {
	Direction DocumentDirection
	Prefix    string
}

// PaymentTypeSpec is one row of the payment type table
type PaymentTypeSpec struct {
	Direction   PaymentDirection
	Source      AccountKind
	Destination AccountKind
	Prefix      string
}

// IsTransfer reports whether the type moves money between two of the company's own accounts
func (s PaymentTypeSpec) IsTransfer() bool {
	return s.Destination != AccountNone
}

// CashOutflow reports whether the type takes money out of a cashbox
func (s PaymentTypeSpec) CashOutflow() bool {
	return s.Source == AccountCashbox && (s.Direction == DirectionOut || s.IsTransfer())
}

var documentTypes = map[DocumentType]DocumentTypeSpec{
	DocumentTypeSalesInvoice:    {Direction: DirectionReceivable, Prefix: "SI"},
	DocumentTypePurchaseInvoice: {Direction: DirectionPayable, Prefix: "PI"},
	DocumentTypeExpense:         {Direction: DirectionPayable, Prefix: "EX"},
	DocumentTypeSalary:          {Direction: DirectionPayable, Prefix: "SL"},
	DocumentTypeAdvanceGiven:    {Direction: DirectionReceivable, Prefix: "AG"},
	DocumentTypeAdvanceReceived: {Direction: DirectionPayable, Prefix: "AR"},
	DocumentTypeDebitNote:       {Direction: DirectionReceivable, Prefix: "DN"},
	DocumentTypeCreditNote:      {Direction: DirectionPayable, Prefix: "CN"},
	DocumentTypeOther:           {Direction: "", Prefix: "DOC"},
}

var paymentTypes = map[PaymentType]PaymentTypeSpec{
	PaymentTypeCashIn:         {Direction: DirectionIn, Source: AccountCashbox, Prefix: "CI"},
	PaymentTypeCashOut:        {Direction: DirectionOut, Source: AccountCashbox, Prefix: "CO"},
	PaymentTypeBankIn:         {Direction: DirectionIn, Source: AccountBank, Prefix: "BI"},
	PaymentTypeBankOut:        {Direction: DirectionOut, Source: AccountBank, Prefix: "BO"},
	PaymentTypeCashToBank:     {Direction: DirectionInternal, Source: AccountCashbox, Destination: AccountBank, Prefix: "CB"},
	PaymentTypeBankToCash:     {Direction: DirectionInternal, Source: AccountBank, Destination: AccountCashbox, Prefix: "BC"},
	PaymentTypeBankTransfer:   {Direction: DirectionInternal, Source: AccountBank, Destination: AccountBank, Prefix: "BT"},
	PaymentTypeInternalOffset: {Direction: DirectionInternal, Prefix: "IO"},
}

// settleMatrix is the direction-compatibility matrix used by allocation.
// Internal payments settle either side; advance deductions rely on this.
var settleMatrix = map[PaymentDirection]map[DocumentDirection]bool{
	DirectionOut:      {DirectionPayable: true},
	DirectionIn:       {DirectionReceivable: true},
	DirectionInternal: {DirectionPayable: true, DirectionReceivable: true},
}

func (t DocumentType) IsValid() bool {
	_, ok := documentTypes[t]
	return ok
}

func (t DocumentType) String() string { return string(t) }

// Spec returns the table row for the type
func (t DocumentType) Spec() (DocumentTypeSpec, bool) {
	s, ok := documentTypes[t]
	return s, ok
}

func (t PaymentType) IsValid() bool {
	_, ok := paymentTypes[t]
	return ok
}

func (t PaymentType) String() string { return string(t) }

// Spec returns the table row for the type
func (t PaymentType) Spec() (PaymentTypeSpec, bool) {
	s, ok := paymentTypes[t]
	return s, ok
}

// ResolveDocumentDirection derives the direction for a document type.
// An explicit direction must agree with the table unless the type has no fixed direction.
func ResolveDocumentDirection(t DocumentType, explicit DocumentDirection) (DocumentDirection, error) {
	spec, ok := documentTypes[t]
	if !ok {
		return "", shared.NewValidationError("INVALID_DOCUMENT_TYPE", "unknown document type %q", t)
	}
	if explicit == "" {
		if spec.Direction == "" {
			return "", shared.NewValidationError("DIRECTION_REQUIRED", "document type %q requires an explicit direction", t)
		}
		return spec.Direction, nil
	}
	if !explicit.IsValid() {
		return "", shared.NewValidationError("INVALID_DIRECTION", "unknown document direction %q", explicit)
	}
	if spec.Direction != "" && spec.Direction != explicit {
		return "", shared.NewValidationError("DIRECTION_MISMATCH",
			"document type %q is %s, not %s", t, spec.Direction, explicit)
	}
	return explicit, nil
}

// ResolvePaymentDirection derives the direction for a payment type.
// Internal offsets are always internal regardless of the explicit value.
func ResolvePaymentDirection(t PaymentType, explicit PaymentDirection) (PaymentDirection, error) {
	spec, ok := paymentTypes[t]
	if !ok {
		return "", shared.NewValidationError("INVALID_PAYMENT_TYPE", "unknown payment type %q", t)
	}
	if t == PaymentTypeInternalOffset || explicit == "" {
		return spec.Direction, nil
	}
	if !explicit.IsValid() {
		return "", shared.NewValidationError("INVALID_DIRECTION", "unknown payment direction %q", explicit)
	}
	if explicit != spec.Direction {
		return "", shared.NewValidationError("DIRECTION_MISMATCH",
			"payment type %q is %s, not %s", t, spec.Direction, explicit)
	}
	return explicit, nil
}

// CanSettle reports whether a payment of direction p may settle a document of direction d
func CanSettle(p PaymentDirection, d DocumentDirection) bool {
	return settleMatrix[p][d]
}

// SettleableDirections lists the document directions a payment direction may settle
func SettleableDirections(p PaymentDirection) []DocumentDirection {
	out := make([]DocumentDirection, 0, 2)
	for _, d := range []DocumentDirection{DirectionPayable, DirectionReceivable} {
		if settleMatrix[p][d] {
			out = append(out, d)
		}
	}
	return out
}

// AdvanceFor returns the advance document type recording an overpayment in direction p
func AdvanceFor(p PaymentDirection) (DocumentType, DocumentDirection, error) {
	switch p {
	case DirectionOut:
		return DocumentTypeAdvanceGiven, DirectionReceivable, nil
	case DirectionIn:
		return DocumentTypeAdvanceReceived, DirectionPayable, nil
	default:
		return "", "", shared.NewValidationError("OVERPAYMENT_DIRECTION",
			"overpayment is only defined for in or out payments, got %s", p)
	}
}
