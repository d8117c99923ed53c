package settlement_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// recordingAudit keeps every emitted batch
type recordingAudit struct {
	mu     sync.Mutex
	events []appsettlement.AuditEvent
}

func (r *recordingAudit) Emit(_ context.Context, events []appsettlement.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingAudit) actions(entity appsettlement.AuditEntity) []appsettlement.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []appsettlement.AuditAction
	for _, e := range r.events {
		if e.EntityType == entity {
			out = append(out, e.Action)
		}
	}
	return out
}

type fixture struct {
	engine    *appsettlement.Engine
	db        *gorm.DB
	audit     *recordingAudit
	companyID uuid.UUID
	customer  uuid.UUID
	supplier  uuid.UUID
	bank      uuid.UUID
	cashbox   uuid.UUID
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engine.db")), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	audit := &recordingAudit{}
	f := &fixture{
		engine: appsettlement.NewEngine(appsettlement.Options{
			Scope: persistence.NewGormTransactionScope(db),
			Audit: audit,
			Clock: fixedClock{now: time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)},
			Retry: appsettlement.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond},
		}),
		db:        db,
		audit:     audit,
		companyID: uuid.New(),
	}

	ctx := context.Background()
	customer, err := f.engine.Directory.CreateParty(ctx, appsettlement.CreatePartyInput{
		CompanyID: f.companyID, Code: "C001", Name: "Acme Retail", Type: "customer",
	})
	require.NoError(t, err)
	supplier, err := f.engine.Directory.CreateParty(ctx, appsettlement.CreatePartyInput{
		CompanyID: f.companyID, Code: "S001", Name: "Northwind Supply", Type: "supplier",
	})
	require.NoError(t, err)
	bank, err := f.engine.Directory.CreateAccount(ctx, appsettlement.CreateAccountInput{
		CompanyID: f.companyID, Kind: "bank", Code: "BNK1", Name: "Operating account",
	})
	require.NoError(t, err)
	cashbox, err := f.engine.Directory.CreateAccount(ctx, appsettlement.CreateAccountInput{
		CompanyID: f.companyID, Kind: "cashbox", Code: "CSH1", Name: "Front desk",
	})
	require.NoError(t, err)

	f.customer, f.supplier, f.bank, f.cashbox = customer.ID, supplier.ID, bank.ID, cashbox.ID
	return f
}

func (f *fixture) invoice(t *testing.T, docType string, party uuid.UUID, date time.Time, due *time.Time, total string) *appsettlement.DocumentResponse {
	t.Helper()
	doc, err := f.engine.Documents.Create(context.Background(), appsettlement.CreateDocumentInput{
		CompanyID:    f.companyID,
		Type:         docType,
		PartyID:      party,
		DocumentDate: date,
		DueDate:      due,
		TotalAmount:  dec(total),
		Description:  docType + " " + total,
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) bankPayment(t *testing.T, payType string, party uuid.UUID, date time.Time, amount string) *appsettlement.PaymentResponse {
	t.Helper()
	pay, err := f.engine.Payments.Create(context.Background(), appsettlement.CreatePaymentInput{
		CompanyID:     f.companyID,
		Type:          payType,
		PartyID:       &party,
		BankAccountID: &f.bank,
		PaymentDate:   date,
		Amount:        dec(amount),
	})
	require.NoError(t, err)
	return pay
}

func (f *fixture) allocate(t *testing.T, paymentID, documentID uuid.UUID, amount string) (*appsettlement.AllocationResult, error) {
	t.Helper()
	return f.engine.Allocations.Allocate(context.Background(), f.companyID, paymentID, appsettlement.AllocateInput{
		Lines: []appsettlement.AllocationLineInput{{DocumentID: documentID, Amount: dec(amount)}},
	})
}

func TestPartialThenFullSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "1000")
	assert.Equal(t, "SI-2026-00001", doc.DocumentNumber)
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 20), "1000")
	assert.Equal(t, "BI-2026-00001", pay.PaymentNumber)

	res, err := f.allocate(t, pay.ID, doc.ID, "400")
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "partial", res.Documents[0].Status)
	assert.True(t, dec("600").Equal(res.Documents[0].UnpaidAmount))
	assert.True(t, dec("600").Equal(res.RemainingPayment))

	res, err = f.allocate(t, pay.ID, doc.ID, "600")
	require.NoError(t, err)
	assert.Equal(t, "settled", res.Documents[0].Status)
	assert.True(t, res.Documents[0].UnpaidAmount.IsZero())

	got, err := f.engine.Documents.Get(ctx, f.companyID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "settled", got.Status)
	assert.True(t, dec("1000").Equal(got.AllocatedAmount))

	_, err = f.allocate(t, pay.ID, doc.ID, "1")
	assert.True(t, shared.IsValidation(err) || shared.IsState(err), "settled document cannot take more: %v", err)
}

func TestAllocateRejectsOverAllocation(t *testing.T) {
	f := newFixture(t)
	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "300")
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 3), "500")

	_, err := f.allocate(t, pay.ID, doc.ID, "301")
	assert.True(t, shared.IsValidation(err))

	other := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "400")
	_, err = f.engine.Allocations.Allocate(context.Background(), f.companyID, pay.ID, appsettlement.AllocateInput{
		Lines: []appsettlement.AllocationLineInput{
			{DocumentID: doc.ID, Amount: dec("300")},
			{DocumentID: other.ID, Amount: dec("300")},
		},
	})
	assert.True(t, shared.IsValidation(err))

	// the failed batch left nothing behind
	allocs, err := f.engine.Allocations.ListByPayment(context.Background(), f.companyID, pay.ID, false)
	require.NoError(t, err)
	assert.Empty(t, allocs)
}

func TestAllocateChecksDirectionAndParty(t *testing.T) {
	f := newFixture(t)
	bill := f.invoice(t, "purchase_invoice", f.supplier, day(2026, 3, 2), nil, "100")
	receipt := f.bankPayment(t, "bank_in", f.supplier, day(2026, 3, 5), "100")

	_, err := f.allocate(t, receipt.ID, bill.ID, "50")
	assert.True(t, shared.IsValidation(err))

	sale := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "100")
	_, err = f.allocate(t, receipt.ID, sale.ID, "50")
	assert.True(t, shared.IsValidation(err))
}

func TestLockedPeriodStillAcceptsSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 2, 10), nil, "800")
	_, err := f.engine.Periods.Lock(ctx, f.companyID, 2026, 2, "february closed")
	require.NoError(t, err)

	_, err = f.engine.Documents.Update(ctx, f.companyID, doc.ID, appsettlement.UpdateDocumentInput{
		Description: ptr("renamed"),
	})
	require.Error(t, err)
	assert.True(t, shared.IsState(err))

	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 4, 1), "500")
	res, err := f.allocate(t, pay.ID, doc.ID, "500")
	require.NoError(t, err)
	assert.Equal(t, "partial", res.Documents[0].Status)

	got, err := f.engine.Documents.Get(ctx, f.companyID, doc.ID)
	require.NoError(t, err)
	assert.True(t, dec("800").Equal(got.TotalAmount))
	assert.True(t, day(2026, 2, 10).Equal(got.DocumentDate))
	assert.Equal(t, "sales_invoice 800", got.Description)

	// new records cannot be dated into the locked month
	_, err = f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "bank_in", PartyID: &f.customer, BankAccountID: &f.bank,
		PaymentDate: day(2026, 2, 20), Amount: dec("10"),
	})
	assert.True(t, shared.IsState(err))

	open, err := f.engine.Periods.IsOpen(ctx, f.companyID, 2026, 2)
	require.NoError(t, err)
	assert.False(t, open)
	_, err = f.engine.Periods.Unlock(ctx, f.companyID, 2026, 2, "late adjustment")
	require.NoError(t, err)
	_, err = f.engine.Documents.Update(ctx, f.companyID, doc.ID, appsettlement.UpdateDocumentInput{
		Description: ptr("renamed"),
	})
	assert.True(t, shared.IsState(err), "allocated documents stay frozen")
}

func TestOverpaymentCreatesAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill := f.invoice(t, "purchase_invoice", f.supplier, day(2026, 3, 1), nil, "1000")
	pay := f.bankPayment(t, "bank_out", f.supplier, day(2026, 3, 12), "1500")
	assert.Equal(t, "out", pay.Direction)

	res, err := f.allocate(t, pay.ID, bill.ID, "1000")
	require.NoError(t, err)
	assert.Equal(t, "settled", res.Documents[0].Status)

	advance, err := f.engine.Allocations.HandleOverpayment(ctx, f.companyID, pay.ID, dec("500"))
	require.NoError(t, err)
	assert.Equal(t, "advance_given", advance.Type)
	assert.Equal(t, "receivable", advance.Direction)
	assert.Equal(t, f.supplier, advance.PartyID)
	assert.True(t, dec("500").Equal(advance.TotalAmount))
	assert.Equal(t, "AG-2026-00001", advance.DocumentNumber)

	after, err := f.engine.Payments.Get(ctx, f.companyID, pay.ID)
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(after.UnallocatedAmount))

	_, err = f.engine.Allocations.HandleOverpayment(ctx, f.companyID, pay.ID, dec("501"))
	assert.True(t, shared.IsValidation(err))
}

func TestAutoAllocateOldestDueFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newer := f.invoice(t, "purchase_invoice", f.supplier, day(2026, 3, 1), ptr(day(2026, 4, 30)), "700")
	older := f.invoice(t, "purchase_invoice", f.supplier, day(2026, 3, 5), ptr(day(2026, 3, 31)), "500")
	pay := f.bankPayment(t, "bank_out", f.supplier, day(2026, 4, 2), "1000")

	res, err := f.engine.Allocations.AutoAllocate(ctx, f.companyID, pay.ID, nil)
	require.NoError(t, err)
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, older.ID, res.Allocations[0].DocumentID)
	assert.True(t, dec("500").Equal(res.Allocations[0].Amount))
	assert.Equal(t, newer.ID, res.Allocations[1].DocumentID)
	assert.True(t, dec("500").Equal(res.Allocations[1].Amount))
	assert.True(t, res.RemainingPayment.IsZero())

	got, err := f.engine.Documents.Get(ctx, f.companyID, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "settled", got.Status)
	got, err = f.engine.Documents.Get(ctx, f.companyID, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "partial", got.Status)
	assert.True(t, dec("200").Equal(got.UnpaidAmount))

	_, err = f.engine.Allocations.AutoAllocate(ctx, f.companyID, pay.ID, nil)
	assert.True(t, shared.IsValidation(err), "exhausted payment")

	// nothing left to settle is not an error
	idle, err := f.engine.Directory.CreateParty(ctx, appsettlement.CreatePartyInput{
		CompanyID: f.companyID, Name: "Idle Vendor", Type: "supplier",
	})
	require.NoError(t, err)
	spare := f.bankPayment(t, "bank_out", idle.ID, day(2026, 4, 3), "50")
	res, err = f.engine.Allocations.AutoAllocate(ctx, f.companyID, spare.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Allocations)
	assert.True(t, dec("50").Equal(res.RemainingPayment))
}

func TestCancelPaymentRequiresReleasedAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "250")
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 9), "250")
	res, err := f.allocate(t, pay.ID, doc.ID, "250")
	require.NoError(t, err)

	_, err = f.engine.Payments.Cancel(ctx, f.companyID, pay.ID, "duplicate entry")
	require.Error(t, err)
	assert.True(t, shared.IsState(err))

	cancelled, err := f.engine.Allocations.CancelAllocation(ctx, f.companyID, res.Allocations[0].ID, "wrong invoice")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	got, err := f.engine.Documents.Get(ctx, f.companyID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	assert.True(t, dec("250").Equal(got.UnpaidAmount))

	voided, err := f.engine.Payments.Cancel(ctx, f.companyID, pay.ID, "duplicate entry")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", voided.Status)

	_, err = f.engine.Allocations.CancelAllocation(ctx, f.companyID, res.Allocations[0].ID, "again")
	assert.True(t, shared.IsState(err) || shared.IsConcurrency(err))

	// a released document can be settled by another payment
	second := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 11), "250")
	res, err = f.allocate(t, second.ID, doc.ID, "250")
	require.NoError(t, err)
	assert.Equal(t, "settled", res.Documents[0].Status)
}

func TestReverseDocumentReleasesAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.engine.Documents.Create(ctx, appsettlement.CreateDocumentInput{
		CompanyID:    f.companyID,
		Type:         "sales_invoice",
		PartyID:      f.customer,
		DocumentDate: day(2026, 3, 4),
		Lines: []appsettlement.DocumentLineInput{
			{Description: "widgets", Quantity: dec("3"), UnitPrice: dec("100"), TaxAmount: dec("30")},
		},
	})
	require.NoError(t, err)
	assert.True(t, dec("330").Equal(doc.TotalAmount))

	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 6), "330")
	_, err = f.allocate(t, pay.ID, doc.ID, "100")
	require.NoError(t, err)

	rev, err := f.engine.Documents.Reverse(ctx, f.companyID, doc.ID, "issued in error")
	require.NoError(t, err)
	assert.Equal(t, "reversed", rev.Original.Status)
	assert.Equal(t, "SI-2026-00002", rev.Reversal.DocumentNumber)
	assert.True(t, dec("-330").Equal(rev.Reversal.TotalAmount))
	assert.True(t, day(2026, 4, 15).Equal(rev.Reversal.DocumentDate))
	require.NotNil(t, rev.Reversal.ReversedDocumentID)
	assert.Equal(t, doc.ID, *rev.Reversal.ReversedDocumentID)
	require.Len(t, rev.Reversal.Lines, 1)
	assert.True(t, dec("-3").Equal(rev.Reversal.Lines[0].Quantity))
	assert.True(t, dec("-330").Equal(rev.Reversal.Lines[0].LineTotal))

	after, err := f.engine.Payments.Get(ctx, f.companyID, pay.ID)
	require.NoError(t, err)
	assert.True(t, after.AllocatedAmount.IsZero())

	_, err = f.engine.Documents.Reverse(ctx, f.companyID, doc.ID, "twice")
	assert.True(t, shared.IsState(err))
}

func TestReversePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pay := f.bankPayment(t, "bank_out", f.supplier, day(2026, 3, 6), "75")
	rev, err := f.engine.Payments.Reverse(ctx, f.companyID, pay.ID, "bounced")
	require.NoError(t, err)
	assert.Equal(t, "reversed", rev.Original.Status)
	assert.Equal(t, "in", rev.Reversal.Direction)
	assert.Equal(t, "BO-2026-00002", rev.Reversal.PaymentNumber)
	assert.True(t, day(2026, 4, 15).Equal(rev.Reversal.PaymentDate))
}

func TestCashOutflowNeedsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "cash_out", PartyID: &f.supplier, CashboxID: &f.cashbox,
		PaymentDate: day(2026, 3, 1), Amount: dec("10"),
	})
	assert.True(t, shared.IsValidation(err))

	_, err = f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "cash_in", PartyID: &f.customer, CashboxID: &f.cashbox,
		PaymentDate: day(2026, 3, 1), Amount: dec("40"),
	})
	require.NoError(t, err)
	out, err := f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "cash_out", PartyID: &f.supplier, CashboxID: &f.cashbox,
		PaymentDate: day(2026, 3, 2), Amount: dec("40"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CO-2026-00001", out.PaymentNumber)

	acct, err := f.engine.Directory.GetAccount(ctx, f.companyID, f.cashbox)
	require.NoError(t, err)
	require.NotNil(t, acct.Balance)
	assert.True(t, acct.Balance.IsZero())
}

func TestExplicitNumberCollisionIsValidation(t *testing.T) {
	f := newFixture(t)
	in := appsettlement.CreateDocumentInput{
		CompanyID: f.companyID, DocumentNumber: "INV-7", Type: "sales_invoice",
		PartyID: f.customer, DocumentDate: day(2026, 3, 1), TotalAmount: dec("10"),
	}
	_, err := f.engine.Documents.Create(context.Background(), in)
	require.NoError(t, err)
	_, err = f.engine.Documents.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestAuditEmittedOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "100")
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 3), "100")

	before := len(f.audit.actions(appsettlement.AuditEntityAllocation))
	_, err := f.allocate(t, pay.ID, doc.ID, "150")
	require.Error(t, err)
	assert.Len(t, f.audit.actions(appsettlement.AuditEntityAllocation), before)

	_, err = f.allocate(t, pay.ID, doc.ID, "100")
	require.NoError(t, err)
	assert.Equal(t, []appsettlement.AuditAction{appsettlement.AuditActionCreated},
		f.audit.actions(appsettlement.AuditEntityAllocation))
	assert.Contains(t, f.audit.actions(appsettlement.AuditEntityDocument), appsettlement.AuditActionStatusChanged)
}

func TestInternalOffsetSettlesBothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	employee, err := f.engine.Directory.CreateParty(ctx, appsettlement.CreatePartyInput{
		CompanyID: f.companyID, Name: "J. Doe", Type: "employee",
	})
	require.NoError(t, err)
	advance := f.invoice(t, "advance_given", employee.ID, day(2026, 3, 1), nil, "200")
	salary := f.invoice(t, "salary", employee.ID, day(2026, 3, 31), nil, "1200")

	offset, err := f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "internal_offset", PartyID: &employee.ID,
		PaymentDate: day(2026, 3, 31), Amount: dec("200"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(settlement.DirectionInternal), offset.Direction)

	res, err := f.engine.Allocations.Allocate(ctx, f.companyID, offset.ID, appsettlement.AllocateInput{
		Lines: []appsettlement.AllocationLineInput{
			{DocumentID: advance.ID, Amount: dec("100")},
			{DocumentID: salary.ID, Amount: dec("100")},
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.Allocations, 2)
	assert.True(t, res.RemainingPayment.IsZero())
}

func TestHandEnteredNumberDoesNotBlockAutoNumbering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Documents.Create(ctx, appsettlement.CreateDocumentInput{
		CompanyID: f.companyID, DocumentNumber: "SI-2026-A1", Type: "sales_invoice",
		PartyID: f.customer, DocumentDate: day(2026, 3, 1), TotalAmount: dec("10"),
	})
	require.NoError(t, err)

	first := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "20")
	second := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 3), nil, "30")
	assert.Equal(t, "SI-2026-00001", first.DocumentNumber)
	assert.Equal(t, "SI-2026-00002", second.DocumentNumber)
}

func TestAutoNumberingPassesFiveDigits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Documents.Create(ctx, appsettlement.CreateDocumentInput{
		CompanyID: f.companyID, DocumentNumber: "SI-2026-99999", Type: "sales_invoice",
		PartyID: f.customer, DocumentDate: day(2026, 3, 1), TotalAmount: dec("10"),
	})
	require.NoError(t, err)

	assert.Equal(t, "SI-2026-100000", f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "20").DocumentNumber)
	assert.Equal(t, "SI-2026-100001", f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 3), nil, "20").DocumentNumber)
}

func TestPaymentAccountChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	create := func(bank *uuid.UUID) error {
		_, err := f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
			CompanyID: f.companyID, Type: "bank_in", PartyID: &f.customer, BankAccountID: bank,
			PaymentDate: day(2026, 3, 1), Amount: dec("10"),
		})
		return err
	}

	t.Run("unknown account", func(t *testing.T) {
		err := create(ptr(uuid.New()))
		assert.True(t, shared.IsValidation(err))
		assert.Equal(t, "ACCOUNT_NOT_FOUND", errorCode(t, err))
	})

	t.Run("account of another company", func(t *testing.T) {
		foreign, err := f.engine.Directory.CreateAccount(ctx, appsettlement.CreateAccountInput{
			CompanyID: uuid.New(), Kind: "bank", Code: "BNK9", Name: "Someone else's account",
		})
		require.NoError(t, err)
		assert.Equal(t, "ACCOUNT_COMPANY_MISMATCH", errorCode(t, create(&foreign.ID)))
	})

	t.Run("cashbox used as a bank account", func(t *testing.T) {
		assert.Equal(t, "ACCOUNT_KIND_MISMATCH", errorCode(t, create(&f.cashbox)))
	})

	t.Run("inactive account", func(t *testing.T) {
		closed, err := f.engine.Directory.CreateAccount(ctx, appsettlement.CreateAccountInput{
			CompanyID: f.companyID, Kind: "bank", Code: "BNK2", Name: "Closed account",
		})
		require.NoError(t, err)
		require.NoError(t, f.db.Model(&models.AccountModel{}).Where("id = ?", closed.ID).Update("is_active", false).Error)
		assert.Equal(t, "ACCOUNT_INACTIVE", errorCode(t, create(&closed.ID)))
	})

	t.Run("no payment was written", func(t *testing.T) {
		_, total, err := f.engine.Payments.List(ctx, f.companyID, appsettlement.PaymentListFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestTransfersMoveCashboxBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "bank_to_cash", BankAccountID: &f.bank, DestinationCashboxID: &f.cashbox,
		PaymentDate: day(2026, 3, 1), Amount: dec("500"),
	})
	require.NoError(t, err)

	acct, err := f.engine.Directory.GetAccount(ctx, f.companyID, f.cashbox)
	require.NoError(t, err)
	require.NotNil(t, acct.Balance)
	assert.True(t, dec("500").Equal(*acct.Balance))

	deposit, err := f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "cash_to_bank", CashboxID: &f.cashbox, DestinationBankAccountID: &f.bank,
		PaymentDate: day(2026, 3, 2), Amount: dec("320"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CB-2026-00001", deposit.PaymentNumber)
	assert.Equal(t, "internal", deposit.Direction)

	acct, err = f.engine.Directory.GetAccount(ctx, f.companyID, f.cashbox)
	require.NoError(t, err)
	assert.True(t, dec("180").Equal(*acct.Balance))

	_, err = f.engine.Payments.Create(ctx, appsettlement.CreatePaymentInput{
		CompanyID: f.companyID, Type: "cash_to_bank", CashboxID: &f.cashbox, DestinationBankAccountID: &f.bank,
		PaymentDate: day(2026, 3, 3), Amount: dec("181"),
	})
	assert.True(t, shared.IsValidation(err), "a transfer cannot overdraw the cashbox")
}

func TestReversePaymentReleasesAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.invoice(t, "sales_invoice", f.customer, day(2026, 3, 2), nil, "250")
	pay := f.bankPayment(t, "bank_in", f.customer, day(2026, 3, 5), "250")
	_, err := f.allocate(t, pay.ID, doc.ID, "250")
	require.NoError(t, err)

	rev, err := f.engine.Payments.Reverse(ctx, f.companyID, pay.ID, "chargeback")
	require.NoError(t, err)
	assert.Equal(t, "reversed", rev.Original.Status)
	require.NotNil(t, rev.Original.ReversalPaymentID)
	assert.Equal(t, rev.Reversal.ID, *rev.Original.ReversalPaymentID)
	require.NotNil(t, rev.Reversal.ReversedPaymentID)
	assert.Equal(t, pay.ID, *rev.Reversal.ReversedPaymentID)
	assert.Equal(t, "out", rev.Reversal.Direction)

	active, err := f.engine.Allocations.ListByPayment(ctx, f.companyID, pay.ID, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	after, err := f.engine.Documents.Get(ctx, f.companyID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", after.Status)
	assert.True(t, after.AllocatedAmount.IsZero())
	assert.True(t, dec("250").Equal(after.UnpaidAmount))
}

func TestBranchesShareTheCompanySequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var numbers []string
	for _, branch := range []uuid.UUID{uuid.New(), uuid.New()} {
		doc, err := f.engine.Documents.Create(ctx, appsettlement.CreateDocumentInput{
			CompanyID: f.companyID, BranchID: ptr(branch), Type: "sales_invoice",
			PartyID: f.customer, DocumentDate: day(2026, 3, 1), TotalAmount: dec("10"),
		})
		require.NoError(t, err)
		numbers = append(numbers, doc.DocumentNumber)
	}
	assert.Equal(t, []string{"SI-2026-00001", "SI-2026-00002"}, numbers)
}
