package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetryPolicy bounds the optimistic number-generation retry loop
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy allows ten attempts with a linearly growing delay
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 10, BaseDelay: 20 * time.Millisecond}
}

// delay returns the pause before the given 1-based retry
func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Options wires an Engine
type Options struct {
	Scope TransactionScope
	// Sequences overrides in-transaction max+1 numbering when set
	Sequences SequenceGenerator
	Audit     AuditSink
	Clock     Clock
	Metrics   Metrics
	Logger    *zap.Logger
	Retry     RetryPolicy
}

// core holds what every settlement service shares
type core struct {
	scope     TransactionScope
	sequences SequenceGenerator
	audit     AuditSink
	clock     Clock
	metrics   Metrics
	logger    *zap.Logger
	retry     RetryPolicy
	validate  *validator.Validate
}

func newCore(opts Options) *core {
	c := &core{
		scope:     opts.Scope,
		sequences: opts.Sequences,
		audit:     opts.Audit,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		retry:     opts.Retry,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	if c.audit == nil {
		c.audit = discardAudit{}
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.retry.Attempts <= 0 {
		c.retry = DefaultRetryPolicy()
	}
	return c
}

// txContext is the state of one transaction attempt: its repositories, its
// buffered audit events and the rows it already holds locks on.
type txContext struct {
	repos     TransactionalRepositories
	trail     *auditTrail
	now       time.Time
	actor     Actor
	documents map[uuid.UUID]*settlement.Document
	payments  map[uuid.UUID]*settlement.Payment
}

func (tx *txContext) today() time.Time {
	return settlement.DateOnly(tx.now)
}

// lockDocument loads a document under a row lock once per transaction
func (tx *txContext) lockDocument(ctx context.Context, companyID, id uuid.UUID) (*settlement.Document, error) {
	if doc, ok := tx.documents[id]; ok {
		return doc, nil
	}
	doc, err := tx.repos.Documents().FindByIDForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	tx.documents[id] = doc
	return doc, nil
}

// lockPayment loads a payment under a row lock once per transaction
func (tx *txContext) lockPayment(ctx context.Context, companyID, id uuid.UUID) (*settlement.Payment, error) {
	if pay, ok := tx.payments[id]; ok {
		return pay, nil
	}
	pay, err := tx.repos.Payments().FindByIDForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	tx.payments[id] = pay
	return pay, nil
}

// run executes fn in one transaction and emits its audit events after commit
func (c *core) run(ctx context.Context, fn func(ctx context.Context, tx *txContext) error) error {
	actor := ActorFromContext(ctx)
	var trail *auditTrail
	err := c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := c.clock.Now()
		tx := &txContext{
			repos:     repos,
			trail:     newAuditTrail(actor, now),
			now:       now,
			actor:     actor,
			documents: make(map[uuid.UUID]*settlement.Document),
			payments:  make(map[uuid.UUID]*settlement.Payment),
		}
		trail = tx.trail
		return fn(ctx, tx)
	})
	if err != nil {
		return err
	}
	if len(trail.events) > 0 {
		if emitErr := c.audit.Emit(ctx, trail.events); emitErr != nil {
			c.logger.Error("audit emit failed after commit",
				zap.Int("events", len(trail.events)),
				zap.Error(emitErr),
			)
		}
	}
	return nil
}

// runNumbered runs fn like run, retrying the whole transaction with a fresh
// number whenever it fails on a number conflict. Exhaustion is a ConcurrencyError.
func (c *core) runNumbered(ctx context.Context, scope settlement.NumberScope, fn func(ctx context.Context, tx *txContext) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		err := c.run(ctx, fn)
		if err == nil || !settlement.IsNumberConflict(err) {
			return err
		}
		lastErr = err
		c.metrics.NumberConflict(ctx, scope)
		c.logger.Warn("number conflict, retrying",
			zap.String("scope", string(scope)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == c.retry.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retry.delay(attempt)):
		}
	}
	return shared.NewConcurrencyError("could not allocate a unique %s number after %d attempts: %v",
		scope, c.retry.Attempts, lastErr)
}

// nextNumber asks the sequence generator, falling back to the highest stored number plus one
func (c *core) nextNumber(ctx context.Context, tx *txContext, key settlement.SequenceKey) (string, error) {
	if c.sequences != nil {
		return c.sequences.Next(ctx, key)
	}
	var (
		highest int64
		err     error
	)
	switch key.Scope {
	case settlement.NumberScopePayment:
		highest, err = tx.repos.Payments().MaxSequence(ctx, key.CompanyID, key.NumberPrefix())
	default:
		highest, err = tx.repos.Documents().MaxSequence(ctx, key.CompanyID, key.NumberPrefix())
	}
	if err != nil {
		return "", fmt.Errorf("read highest %s number: %w", key.Scope, err)
	}
	return key.FormatNumber(highest + 1), nil
}

// validateOpen fails with a StateError unless the period containing date is open.
// A month without a period row is open.
func (c *core) validateOpen(ctx context.Context, tx *txContext, companyID uuid.UUID, date time.Time) error {
	year, month := settlement.YearMonth(date)
	period, err := tx.repos.Periods().Find(ctx, companyID, year, month)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if !period.IsOpen() {
		return shared.NewStateError("PERIOD_NOT_OPEN", "period %04d-%02d is %s", year, month, period.Status)
	}
	return nil
}

// validateInput runs struct tag validation and reports the first failing field
func (c *core) validateInput(in any) error {
	err := c.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return shared.NewDomainError(shared.KindInvalidInput, shared.ErrInvalidInput.Code,
			fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
	}
	return shared.NewDomainError(shared.KindInvalidInput, shared.ErrInvalidInput.Code, err.Error())
}
