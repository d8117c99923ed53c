package persistence

import (
	"context"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to fn runs on the same *gorm.DB transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// The transaction is rolled back when fn returns an error or panics.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Periods() settlement.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

func (r *gormTransactionalRepositories) Documents() settlement.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() settlement.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Allocations() settlement.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Parties() settlement.PartyRepository {
	return NewGormPartyRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accounts() settlement.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

var (
	_ appsettlement.TransactionScope          = (*GormTransactionScope)(nil)
	_ appsettlement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
