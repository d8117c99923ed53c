package settlement_test

import (
	"context"
	"errors"
	"testing"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.True(t, errors.As(err, &de), "expected a domain error, got %v", err)
	return de.Code
}

func TestPeriodLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.engine.Periods.GetOrCreate(ctx, f.companyID, day(2026, 1, 17))
	require.NoError(t, err)
	assert.Equal(t, "open", p.Status)
	assert.True(t, day(2026, 1, 1).Equal(p.StartDate))
	assert.True(t, day(2026, 1, 31).Equal(p.EndDate))

	again, err := f.engine.Periods.GetOrCreate(ctx, f.companyID, day(2026, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	_, err = f.engine.Periods.Close(ctx, f.companyID, 2026, 1)
	assert.Equal(t, "PERIOD_NOT_LOCKED", errorCode(t, err))

	locked, err := f.engine.Periods.Lock(ctx, f.companyID, 2026, 1, "january")
	require.NoError(t, err)
	assert.Equal(t, "locked", locked.Status)
	require.NotNil(t, locked.LockedAt)

	_, err = f.engine.Periods.Lock(ctx, f.companyID, 2026, 1, "again")
	assert.True(t, shared.IsState(err))

	closed, err := f.engine.Periods.Close(ctx, f.companyID, 2026, 1)
	require.NoError(t, err)
	assert.Equal(t, "closed", closed.Status)

	_, err = f.engine.Periods.Unlock(ctx, f.companyID, 2026, 1, "reopen")
	assert.Equal(t, "PERIOD_CLOSED", errorCode(t, err))

	err = f.engine.Periods.ValidateOpen(ctx, f.companyID, day(2026, 1, 20))
	assert.Equal(t, "PERIOD_NOT_OPEN", errorCode(t, err))
	require.NoError(t, f.engine.Periods.ValidateOpen(ctx, f.companyID, day(2026, 2, 1)))

	periods, err := f.engine.Periods.List(ctx, f.companyID, 2026)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, 1, periods[0].Month)

	// a month nobody touched has no row and counts as open
	open, err := f.engine.Periods.IsOpen(ctx, f.companyID, 2026, 7)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestUnlockUntouchedPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Periods.Unlock(context.Background(), f.companyID, 2026, 5, "")
	assert.Equal(t, "PERIOD_NOT_LOCKED", errorCode(t, err))
}

func TestDraftDocumentPostAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.engine.Documents.Create(ctx, appsettlement.CreateDocumentInput{
		CompanyID:    f.companyID,
		Type:         "purchase_invoice",
		PartyID:      f.supplier,
		DocumentDate: day(2026, 3, 9),
		TotalAmount:  dec("250"),
		AsDraft:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", draft.Status)
	assert.Equal(t, "payable", draft.Direction)

	pay := f.bankPayment(t, "bank_out", f.supplier, day(2026, 3, 10), "250")
	_, err = f.allocate(t, pay.ID, draft.ID, "100")
	assert.Equal(t, "DOCUMENT_NOT_ALLOCATABLE", errorCode(t, err))

	updated, err := f.engine.Documents.Update(ctx, f.companyID, draft.ID, appsettlement.UpdateDocumentInput{
		TotalAmount: ptr(dec("240")),
	})
	require.NoError(t, err)
	assert.True(t, dec("240").Equal(updated.TotalAmount))

	posted, err := f.engine.Documents.Post(ctx, f.companyID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", posted.Status)

	_, err = f.engine.Documents.Post(ctx, f.companyID, draft.ID)
	assert.Equal(t, "DOCUMENT_NOT_DRAFT", errorCode(t, err))

	cancelled, err := f.engine.Documents.Cancel(ctx, f.companyID, draft.ID, "duplicate bill")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Contains(t, cancelled.Notes, "duplicate bill")

	_, err = f.engine.Documents.Cancel(ctx, f.companyID, draft.ID, "")
	assert.Equal(t, "DOCUMENT_ALREADY_CANCELLED", errorCode(t, err))
	assert.Contains(t, f.audit.actions(appsettlement.AuditEntityDocument), appsettlement.AuditActionCancelled)
}

func TestCancelDocumentWithAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "500")
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 5), "200")
	_, err := f.allocate(t, pay.ID, doc.ID, "200")
	require.NoError(t, err)

	_, err = f.engine.Documents.Cancel(ctx, f.companyID, doc.ID, "")
	assert.Equal(t, "DOCUMENT_HAS_ALLOCATIONS", errorCode(t, err))

	n, err := f.engine.Allocations.CancelDocumentAllocations(ctx, f.companyID, doc.ID, "unwind")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cancelled, err := f.engine.Documents.Cancel(ctx, f.companyID, doc.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
}

func TestCancelThenReallocateRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "300")
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 5), "300")

	res, err := f.allocate(t, pay.ID, doc.ID, "300")
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, "settled", res.Documents[0].Status)
	assert.True(t, res.Payment.UnallocatedAmount.IsZero())

	alloc, err := f.engine.Allocations.CancelAllocation(ctx, f.companyID, res.Allocations[0].ID, "wrong invoice")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", alloc.Status)

	restored, err := f.engine.Documents.Get(ctx, f.companyID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", restored.Status)
	assert.True(t, dec("300").Equal(restored.UnpaidAmount))
	payment, err := f.engine.Payments.Get(ctx, f.companyID, pay.ID)
	require.NoError(t, err)
	assert.True(t, payment.AllocatedAmount.IsZero())
	assert.True(t, dec("300").Equal(payment.UnallocatedAmount))

	_, err = f.engine.Allocations.CancelAllocation(ctx, f.companyID, res.Allocations[0].ID, "twice")
	assert.True(t, shared.IsState(err))

	res, err = f.allocate(t, pay.ID, doc.ID, "300")
	require.NoError(t, err)
	assert.Equal(t, "settled", res.Documents[0].Status)
	assert.True(t, dec("300").Equal(res.Payment.AllocatedAmount))

	all, err := f.engine.Allocations.ListByPayment(ctx, f.companyID, pay.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := f.engine.Allocations.ListByPayment(ctx, f.companyID, pay.ID, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestUpdatePaymentBlockedInLockedPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 2, 12), "90")
	_, err := f.engine.Periods.Lock(ctx, f.companyID, 2026, 2, "")
	require.NoError(t, err)

	_, err = f.engine.Payments.Update(ctx, f.companyID, pay.ID, appsettlement.UpdatePaymentInput{
		Amount: ptr(dec("95")),
	})
	assert.Equal(t, "PERIOD_NOT_OPEN", errorCode(t, err))

	// moving the date out of the locked month is an edit of the locked month too
	_, err = f.engine.Payments.Update(ctx, f.companyID, pay.ID, appsettlement.UpdatePaymentInput{
		PaymentDate: ptr(day(2026, 3, 1)),
	})
	assert.True(t, shared.IsState(err))
}

func TestListDocumentsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "10")
	f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 20), nil, "20")
	f.invoice(t, "purchase_invoice", f.supplier, day(2026, 3, 21), nil, "30")

	docs, total, err := f.engine.Documents.List(ctx, f.companyID, appsettlement.DocumentListFilter{
		Direction: "receivable",
		Page:      1,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, docs, 2)

	from := day(2026, 3, 15)
	docs, total, err = f.engine.Documents.List(ctx, f.companyID, appsettlement.DocumentListFilter{
		DateFrom: &from,
		Page:     1,
		PageSize: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, docs, 1)

	open, err := f.engine.Documents.OpenDocumentsForParty(ctx, f.companyID, f.supplier, "payable")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "purchase_invoice", open[0].Type)
}

func TestUpdateDocumentIntoLockedPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 10), nil, "60")
	_, err := f.engine.Periods.Lock(ctx, f.companyID, 2026, 2, "")
	require.NoError(t, err)

	_, err = f.engine.Documents.Update(ctx, f.companyID, doc.ID, appsettlement.UpdateDocumentInput{
		DocumentDate: ptr(day(2026, 2, 20)),
	})
	assert.True(t, shared.IsState(err))
	assert.Equal(t, "PERIOD_NOT_OPEN", errorCode(t, err))

	got, err := f.engine.Documents.Get(ctx, f.companyID, doc.ID)
	require.NoError(t, err)
	assert.True(t, day(2026, 3, 10).Equal(got.DocumentDate))
}

func TestReleaseDocumentFundedByTwoPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "300")
	first := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 5), "120")
	second := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 6), "200")
	_, err := f.allocate(t, first.ID, doc.ID, "120")
	require.NoError(t, err)
	_, err = f.allocate(t, second.ID, doc.ID, "180")
	require.NoError(t, err)

	n, err := f.engine.Allocations.CancelDocumentAllocations(ctx, f.companyID, doc.ID, "unwind")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		pay, err := f.engine.Payments.Get(ctx, f.companyID, id)
		require.NoError(t, err)
		assert.True(t, pay.AllocatedAmount.IsZero(), "payment %s keeps no allocation", pay.PaymentNumber)
	}

	// allocate again from both sides, then release through a reversal
	_, err = f.allocate(t, second.ID, doc.ID, "200")
	require.NoError(t, err)
	_, err = f.allocate(t, first.ID, doc.ID, "100")
	require.NoError(t, err)

	rev, err := f.engine.Documents.Reverse(ctx, f.companyID, doc.ID, "duplicate invoice")
	require.NoError(t, err)
	assert.Equal(t, "reversed", rev.Original.Status)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		active, err := f.engine.Allocations.ListByPayment(ctx, f.companyID, id, true)
		require.NoError(t, err)
		assert.Empty(t, active)
	}
	_, err = f.engine.Documents.Reverse(ctx, f.companyID, uuid.New(), "missing")
	assert.True(t, shared.IsNotFound(err))
}
