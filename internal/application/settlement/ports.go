package settlement

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionScope provides transactional access to settlement repositories.
// Every repository obtained inside Execute shares one database transaction that
// is committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all settlement repositories within a transaction
type TransactionalRepositories interface {
	Periods() settlement.PeriodRepository
	Documents() settlement.DocumentRepository
	Payments() settlement.PaymentRepository
	Allocations() settlement.AllocationRepository
	Parties() settlement.PartyRepository
	Accounts() settlement.AccountRepository
}

// SequenceGenerator produces the next candidate number for a sequence.
// Candidates may collide; creation retries on conflict.
type SequenceGenerator interface {
	Next(ctx context.Context, key settlement.SequenceKey) (string, error)
}

// AuditSink receives audit events after the transaction that produced them commits
type AuditSink interface {
	Emit(ctx context.Context, events []AuditEvent) error
}

// Metrics records settlement activity counters
type Metrics interface {
	DocumentCreated(ctx context.Context, docType settlement.DocumentType)
	PaymentCreated(ctx context.Context, payType settlement.PaymentType)
	Allocated(ctx context.Context, count int, amount decimal.Decimal)
	NumberConflict(ctx context.Context, scope settlement.NumberScope)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Actor is who performed an operation
type Actor struct {
	UserID   uuid.UUID
	Username string
}

type actorKey struct{}

// WithActor attaches the acting user to ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user, or the zero Actor for system calls
func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}

type noopMetrics struct{}

func (noopMetrics) DocumentCreated(context.Context, settlement.DocumentType) {}
func (noopMetrics) PaymentCreated(context.Context, settlement.PaymentType)   {}
func (noopMetrics) Allocated(context.Context, int, decimal.Decimal)          {}
func (noopMetrics) NumberConflict(context.Context, settlement.NumberScope)   {}

type discardAudit struct{}

func (discardAudit) Emit(context.Context, []AuditEvent) error { return nil }
