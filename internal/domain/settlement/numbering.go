package settlement

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NumberScope says which family of records a number belongs to
type NumberScope string

const (
	NumberScopeDocument NumberScope = "document"
	NumberScopePayment  NumberScope = "payment"
)

// SequenceKey identifies one numbering sequence. Numbers are unique per company,
// so every branch of a company draws from the same sequence.
type SequenceKey struct {
	CompanyID uuid.UUID
	Scope     NumberScope
	Prefix    string
	Year      int
}

// String renders the key for caches and logs
func (k SequenceKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%d", k.CompanyID, k.Scope, k.Prefix, k.Year)
}

// NumberPrefix renders the fixed part of numbers in this sequence
func (k SequenceKey) NumberPrefix() string {
	return fmt.Sprintf("%s-%d-", k.Prefix, k.Year)
}

// FormatNumber renders the seq-th number of the sequence, e.g. SI-2026-00042
func (k SequenceKey) FormatNumber(seq int64) string {
	return fmt.Sprintf("%s%05d", k.NumberPrefix(), seq)
}

// DocumentSequenceKey builds the key for a document type
func DocumentSequenceKey(companyID uuid.UUID, t DocumentType, year int) SequenceKey {
	spec, _ := t.Spec()
	return SequenceKey{CompanyID: companyID, Scope: NumberScopeDocument, Prefix: spec.Prefix, Year: year}
}

// PaymentSequenceKey builds the key for a payment type
func PaymentSequenceKey(companyID uuid.UUID, t PaymentType, year int) SequenceKey {
	spec, _ := t.Spec()
	return SequenceKey{CompanyID: companyID, Scope: NumberScopePayment, Prefix: spec.Prefix, Year: year}
}

// NumberConflictError reports that a generated number was taken by a concurrent writer.
// It is the only persistence failure number generation retries on.
type NumberConflictError struct {
	Scope  NumberScope
	Number string
	Err    error
}

func (e *NumberConflictError) Error() string {
	return fmt.Sprintf("%s number %q already exists", e.Scope, e.Number)
}

func (e *NumberConflictError) Unwrap() error { return e.Err }

// Retryable marks the error as safe to retry with a fresh number
func (e *NumberConflictError) Retryable() bool { return true }

// IsNumberConflict reports whether err is a NumberConflictError
func IsNumberConflict(err error) bool {
	var nc *NumberConflictError
	return errors.As(err, &nc)
}
