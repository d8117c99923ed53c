package persistence

import (
	"errors"
	"strings"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// notFound maps gorm.ErrRecordNotFound to a domain not-found error and passes others through
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(entity, id)
	}
	return err
}

// numberConflict turns a unique violation on the number index into a
// *settlement.NumberConflictError and returns other errors unchanged
func numberConflict(err error, scope settlement.NumberScope, number string) error {
	if err == nil {
		return nil
	}
	index, column := models.DocumentNumberIndex, models.DocumentNumberColumn
	if scope == settlement.NumberScopePayment {
		index, column = models.PaymentNumberIndex, models.PaymentNumberColumn
	}
	if isUniqueViolation(err, index, column) {
		return &settlement.NumberConflictError{Scope: scope, Number: number, Err: err}
	}
	return err
}

// isUniqueViolation matches a PostgreSQL unique violation on constraint, or the
// SQLite message naming column. gorm.ErrDuplicatedKey carries no constraint name,
// so a translated error is never treated as a number collision.
func isUniqueViolation(err error, constraint, column string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "."+column)
}

// staleVersion reports a lost optimistic-lock race on a row the caller should hold locked
func staleVersion(entity string, id any) error {
	return shared.NewConcurrencyError("%s %v was modified concurrently", entity, id)
}
