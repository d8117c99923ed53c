package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockTransactionScope runs fn with nil repositories and returns what the expectation says
type MockTransactionScope struct {
	mock.Mock
}

func (m *MockTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	args := m.Called(ctx)
	if err := fn(nil); err != nil {
		return err
	}
	return args.Error(0)
}

type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Emit(ctx context.Context, events []AuditEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) DocumentCreated(ctx context.Context, docType settlement.DocumentType) {
	m.Called(ctx, docType)
}

func (m *MockMetrics) PaymentCreated(ctx context.Context, payType settlement.PaymentType) {
	m.Called(ctx, payType)
}

func (m *MockMetrics) Allocated(ctx context.Context, count int, amount decimal.Decimal) {
	m.Called(ctx, count, amount)
}

func (m *MockMetrics) NumberConflict(ctx context.Context, scope settlement.NumberScope) {
	m.Called(ctx, scope)
}

func conflict(number string) error {
	return &settlement.NumberConflictError{Scope: settlement.NumberScopeDocument, Number: number}
}

func newTestCore(scope TransactionScope, audit AuditSink, metrics Metrics, log *zap.Logger) *core {
	return newCore(Options{
		Scope:   scope,
		Audit:   audit,
		Metrics: metrics,
		Logger:  log,
		Retry:   RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond},
	})
}

func TestRunNumbered_ExhaustsIntoConcurrencyError(t *testing.T) {
	scope := new(MockTransactionScope)
	scope.On("Execute", mock.Anything).Return(nil)
	metrics := new(MockMetrics)
	metrics.On("NumberConflict", mock.Anything, settlement.NumberScopeDocument).Return()
	audit := new(MockAuditSink)

	c := newTestCore(scope, audit, metrics, zap.NewNop())
	calls := 0
	err := c.runNumbered(context.Background(), settlement.NumberScopeDocument, func(ctx context.Context, tx *txContext) error {
		calls++
		tx.trail.record(uuid.New(), AuditEntityDocument, uuid.New(), AuditActionCreated, nil, nil)
		return conflict("SI-2026-00001")
	})

	require.Error(t, err)
	assert.True(t, shared.IsConcurrency(err))
	assert.Equal(t, 3, calls)
	metrics.AssertNumberOfCalls(t, "NumberConflict", 3)
	audit.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestRunNumbered_RetriesThenCommits(t *testing.T) {
	scope := new(MockTransactionScope)
	scope.On("Execute", mock.Anything).Return(nil)
	metrics := new(MockMetrics)
	metrics.On("NumberConflict", mock.Anything, settlement.NumberScopeDocument).Return()
	audit := new(MockAuditSink)
	audit.On("Emit", mock.Anything, mock.MatchedBy(func(events []AuditEvent) bool {
		return len(events) == 1 && events[0].Action == AuditActionCreated
	})).Return(nil).Once()

	c := newTestCore(scope, audit, metrics, zap.NewNop())
	calls := 0
	err := c.runNumbered(context.Background(), settlement.NumberScopeDocument, func(ctx context.Context, tx *txContext) error {
		calls++
		tx.trail.record(uuid.New(), AuditEntityDocument, uuid.New(), AuditActionCreated, nil, nil)
		if calls == 1 {
			return conflict("SI-2026-00001")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	metrics.AssertNumberOfCalls(t, "NumberConflict", 1)
	audit.AssertExpectations(t)
}

func TestRunNumbered_OtherErrorsAreNotRetried(t *testing.T) {
	scope := new(MockTransactionScope)
	scope.On("Execute", mock.Anything).Return(nil)
	metrics := new(MockMetrics)

	c := newTestCore(scope, nil, metrics, zap.NewNop())
	calls := 0
	err := c.runNumbered(context.Background(), settlement.NumberScopePayment, func(ctx context.Context, tx *txContext) error {
		calls++
		return shared.NewStateError("PERIOD_NOT_OPEN", "period 2026-01 is locked")
	})

	assert.True(t, shared.IsState(err))
	assert.Equal(t, 1, calls)
	metrics.AssertNotCalled(t, "NumberConflict", mock.Anything, mock.Anything)
}

func TestRunNumbered_StopsWhenContextEnds(t *testing.T) {
	scope := new(MockTransactionScope)
	scope.On("Execute", mock.Anything).Return(nil)
	metrics := new(MockMetrics)
	metrics.On("NumberConflict", mock.Anything, mock.Anything).Return()

	c := newCore(Options{Scope: scope, Metrics: metrics, Retry: RetryPolicy{Attempts: 5, BaseDelay: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	err := c.runNumbered(ctx, settlement.NumberScopePayment, func(context.Context, *txContext) error {
		cancel()
		return conflict("CI-2026-00004")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CommitFailureSuppressesAudit(t *testing.T) {
	commitErr := errors.New("commit failed")
	scope := new(MockTransactionScope)
	scope.On("Execute", mock.Anything).Return(commitErr)
	audit := new(MockAuditSink)

	c := newTestCore(scope, audit, nil, zap.NewNop())
	err := c.run(context.Background(), func(ctx context.Context, tx *txContext) error {
		tx.trail.record(uuid.New(), AuditEntityPayment, uuid.New(), AuditActionCreated, nil, nil)
		return nil
	})

	assert.ErrorIs(t, err, commitErr)
	audit.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
}

func TestRun_AuditFailureIsLoggedNotReturned(t *testing.T) {
	scope := new(MockTransactionScope)
	scope.On("Execute", mock.Anything).Return(nil)
	audit := new(MockAuditSink)
	audit.On("Emit", mock.Anything, mock.Anything).Return(errors.New("stream unavailable"))
	obs, logs := observer.New(zapcore.ErrorLevel)

	actor := Actor{UserID: uuid.New(), Username: "auditor"}
	ctx := WithActor(context.Background(), actor)
	c := newTestCore(scope, audit, nil, zap.New(obs))
	err := c.run(ctx, func(ctx context.Context, tx *txContext) error {
		assert.Equal(t, actor, tx.actor)
		tx.trail.record(uuid.New(), AuditEntityPeriod, uuid.New(), AuditActionLocked, nil, nil)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("audit emit failed after commit").Len())
	events := audit.Calls[0].Arguments.Get(1).([]AuditEvent)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, actor.UserID, *events[0].ActorID)
}

func TestRetryPolicyDelayGrowsLinearly(t *testing.T) {
	p := RetryPolicy{Attempts: 10, BaseDelay: 20 * time.Millisecond}
	assert.Equal(t, 20*time.Millisecond, p.delay(1))
	assert.Equal(t, 60*time.Millisecond, p.delay(3))
	assert.Equal(t, DefaultRetryPolicy(), p)
}
