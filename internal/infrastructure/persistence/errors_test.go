package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestNumberConflict(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		scope    settlement.NumberScope
		conflict bool
	}{
		{
			name:     "postgres violation on the document number index",
			err:      &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: models.DocumentNumberIndex},
			scope:    settlement.NumberScopeDocument,
			conflict: true,
		},
		{
			name:     "postgres violation on the payment number index",
			err:      fmt.Errorf("insert payment: %w", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: models.PaymentNumberIndex}),
			scope:    settlement.NumberScopePayment,
			conflict: true,
		},
		{
			name:  "postgres violation on another unique index",
			err:   &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_payment_allocations_pair"},
			scope: settlement.NumberScopeDocument,
		},
		{
			name:  "postgres foreign key violation",
			err:   &pgconn.PgError{Code: "23503", ConstraintName: models.DocumentNumberIndex},
			scope: settlement.NumberScopeDocument,
		},
		{
			name:     "sqlite violation naming the number column",
			err:      errors.New("UNIQUE constraint failed: financial_documents.company_id, financial_documents.document_number"),
			scope:    settlement.NumberScopeDocument,
			conflict: true,
		},
		{
			name:  "sqlite violation on another column",
			err:   errors.New("UNIQUE constraint failed: accounts.company_id, accounts.code"),
			scope: settlement.NumberScopePayment,
		},
		{
			name:  "translated duplicate key without a constraint name",
			err:   gorm.ErrDuplicatedKey,
			scope: settlement.NumberScopeDocument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := numberConflict(tt.err, tt.scope, "SI-2026-00001")
			assert.Equal(t, tt.conflict, settlement.IsNumberConflict(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, numberConflict(nil, settlement.NumberScopeDocument, "SI-2026-00001"))
}
