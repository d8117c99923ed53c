package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for callers that branch on failure type
type ErrorKind string

const (
	// KindValidation is a business-rule violation on the supplied data
	KindValidation ErrorKind = "validation"
	// KindState is an illegal transition for the current lifecycle state
	KindState ErrorKind = "state"
	// KindConcurrency is a conflict that survived internal retries
	KindConcurrency ErrorKind = "concurrency"
	// KindNotFound is a missing referenced record
	KindNotFound ErrorKind = "not_found"
	// KindInvalidInput is malformed input rejected before business rules run
	KindInvalidInput ErrorKind = "invalid_input"
	// KindUnauthorized is a missing or invalid identity
	KindUnauthorized ErrorKind = "unauthorized"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by code, so sentinel comparisons survive wrapping
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a business-rule violation
func NewValidationError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindValidation, code, fmt.Sprintf(format, args...))
}

// NewStateError creates an illegal-transition error
func NewStateError(code, format string, args ...any) *DomainError {
	return NewDomainError(KindState, code, fmt.Sprintf(format, args...))
}

// NewConcurrencyError creates a conflict error
func NewConcurrencyError(format string, args ...any) *DomainError {
	return NewDomainError(KindConcurrency, ErrConcurrencyConflict.Code, fmt.Sprintf(format, args...))
}

// NewNotFoundError names the missing entity and its identifier
func NewNotFoundError(entity string, id any) *DomainError {
	return NewDomainError(KindNotFound, ErrNotFound.Code, fmt.Sprintf("%s %v not found", entity, id))
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError(KindInvalidInput, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConcurrency, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(KindUnauthorized, "UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError(KindState, "INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientBalance = NewDomainError(KindValidation, "INSUFFICIENT_BALANCE", "Insufficient balance available")
)

// KindOf returns the kind of the first DomainError in err's chain, or "" when there is none
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsState(err error) bool       { return KindOf(err) == KindState }
func IsConcurrency(err error) bool { return KindOf(err) == KindConcurrency }
func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
