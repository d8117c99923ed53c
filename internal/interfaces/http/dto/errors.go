package dto

import (
	"net/http"

	"github.com/erp/settlement/internal/domain/shared"
)

// Error codes returned when no domain error code applies.
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
	ErrCodeCompany      = "ERR_COMPANY_REQUIRED"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeInProgress   = "ERR_REQUEST_IN_PROGRESS"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
)

// kindStatus maps domain error kinds to HTTP status codes.
// Business-rule and state failures are 422: the request was well formed
// but the ledger refuses it.
var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:   http.StatusUnprocessableEntity,
	shared.KindState:        http.StatusUnprocessableEntity,
	shared.KindConcurrency:  http.StatusConflict,
	shared.KindNotFound:     http.StatusNotFound,
	shared.KindInvalidInput: http.StatusBadRequest,
	shared.KindUnauthorized: http.StatusUnauthorized,
}

// StatusForKind returns the HTTP status for a domain error kind, 500 when unknown
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
