package settlement

import (
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashOutParams() NewPaymentParams {
	cashbox := uuid.New()
	party := uuid.New()
	return NewPaymentParams{
		CompanyID:   uuid.New(),
		Number:      "CO-2024-00001",
		Type:        PaymentTypeCashOut,
		PartyID:     &party,
		CashboxID:   &cashbox,
		PaymentDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:      d("1500"),
	}
}

func TestNewPayment(t *testing.T) {
	t.Run("confirmed with net amount", func(t *testing.T) {
		p := cashOutParams()
		p.FeeAmount = d("2.5")
		pay, err := NewPayment(p)
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusConfirmed, pay.Status)
		assert.Equal(t, DirectionOut, pay.Direction)
		assert.True(t, pay.NetAmount.Equal(d("1497.5")))
		assert.True(t, pay.UnallocatedAmount().Equal(d("1500")))
	})

	t.Run("fee defaults to zero", func(t *testing.T) {
		pay, err := NewPayment(cashOutParams())
		require.NoError(t, err)
		assert.True(t, pay.FeeAmount.IsZero())
		assert.True(t, pay.NetAmount.Equal(pay.Amount))
	})

	t.Run("internal offset needs no account", func(t *testing.T) {
		pay, err := NewPayment(NewPaymentParams{
			CompanyID:   uuid.New(),
			Type:        PaymentTypeInternalOffset,
			Direction:   DirectionIn,
			PaymentDate: time.Now(),
			Amount:      d("10"),
		})
		require.NoError(t, err)
		assert.Equal(t, DirectionInternal, pay.Direction)
	})

	t.Run("transfer needs both legs", func(t *testing.T) {
		cashbox := uuid.New()
		_, err := NewPayment(NewPaymentParams{
			CompanyID:   uuid.New(),
			Type:        PaymentTypeCashToBank,
			CashboxID:   &cashbox,
			PaymentDate: time.Now(),
			Amount:      d("10"),
		})
		assert.True(t, shared.IsValidation(err))

		bank := uuid.New()
		pay, err := NewPayment(NewPaymentParams{
			CompanyID:                uuid.New(),
			Type:                     PaymentTypeCashToBank,
			CashboxID:                &cashbox,
			DestinationBankAccountID: &bank,
			PaymentDate:              time.Now(),
			Amount:                   d("10"),
		})
		require.NoError(t, err)
		assert.Equal(t, &bank, pay.DestinationAccountID())
	})

	t.Run("validation failures", func(t *testing.T) {
		cases := map[string]func(p *NewPaymentParams){
			"missing cashbox":   func(p *NewPaymentParams) { p.CashboxID = nil },
			"bank on cash type": func(p *NewPaymentParams) { b := uuid.New(); p.BankAccountID = &b },
			"zero amount":       func(p *NewPaymentParams) { p.Amount = decimal.Zero },
			"fee above amount":  func(p *NewPaymentParams) { p.FeeAmount = d("1500.01") },
			"negative fee":      func(p *NewPaymentParams) { p.FeeAmount = d("-1") },
			"wrong direction":   func(p *NewPaymentParams) { p.Direction = DirectionIn },
			"unknown type":      func(p *NewPaymentParams) { p.Type = "barter" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				p := cashOutParams()
				mutate(&p)
				_, err := NewPayment(p)
				assert.True(t, shared.IsValidation(err), "got %v", err)
			})
		}
	})
}

func TestPayment_ApplyChanges(t *testing.T) {
	now := time.Now()
	pay, err := NewPayment(cashOutParams())
	require.NoError(t, err)
	require.NoError(t, pay.ApplyAllocatedAmount(d("1000"), now))

	fee := d("5")
	require.NoError(t, pay.ApplyChanges(PaymentChanges{FeeAmount: &fee}, now))
	assert.True(t, pay.NetAmount.Equal(d("1495")))

	tooSmall := d("999")
	err = pay.ApplyChanges(PaymentChanges{Amount: &tooSmall}, now)
	assert.True(t, shared.IsValidation(err))
	assert.True(t, pay.Amount.Equal(d("1500")), "failed change leaves amount untouched")
}

func TestPayment_CancelAndReverse(t *testing.T) {
	now := time.Date(2024, 7, 3, 8, 0, 0, 0, time.UTC)

	t.Run("cancel blocked by allocations", func(t *testing.T) {
		pay, _ := NewPayment(cashOutParams())
		require.NoError(t, pay.ApplyAllocatedAmount(d("1"), now))
		assert.True(t, shared.IsState(pay.Cancel("", now)))
		require.NoError(t, pay.ApplyAllocatedAmount(decimal.Zero, now))
		require.NoError(t, pay.Cancel("void", now))
		assert.Equal(t, PaymentStatusCancelled, pay.Status)
		assert.True(t, shared.IsState(pay.Cancel("", now)))
	})

	t.Run("reverse mirrors with opposite direction", func(t *testing.T) {
		pay, _ := NewPayment(cashOutParams())
		mirror, err := pay.Reverse("CO-2024-00002", now, "bounced", now)
		require.NoError(t, err)
		assert.Equal(t, DirectionIn, mirror.Direction)
		assert.Equal(t, PaymentStatusReversed, mirror.Status)
		assert.Equal(t, PaymentStatusReversed, pay.Status)
		assert.Equal(t, mirror.ID, *pay.ReversalPaymentID)
		assert.Equal(t, pay.ID, *mirror.ReversedPaymentID)
		assert.Equal(t, time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC), mirror.PaymentDate)
		assert.True(t, mirror.Amount.Equal(pay.Amount))

		_, err = pay.Reverse("CO-2024-00003", now, "", now)
		assert.True(t, shared.IsState(err))
	})

	t.Run("cancelled cannot be reversed", func(t *testing.T) {
		pay, _ := NewPayment(cashOutParams())
		require.NoError(t, pay.Cancel("", now))
		_, err := pay.Reverse("X", now, "", now)
		assert.True(t, shared.IsState(err))
	})
}

func TestCheckSettlementPair(t *testing.T) {
	pay, _ := NewPayment(cashOutParams())
	doc := newTestDocument(t, "100")
	doc.CompanyID = pay.CompanyID

	err := CheckSettlementPair(pay, doc)
	assert.True(t, shared.IsValidation(err), "party differs")

	doc.PartyID = *pay.PartyID
	assert.NoError(t, CheckSettlementPair(pay, doc))

	doc.Direction = DirectionReceivable
	assert.True(t, shared.IsValidation(CheckSettlementPair(pay, doc)))

	pay.Direction = DirectionInternal
	assert.NoError(t, CheckSettlementPair(pay, doc))
}

func TestPaymentAllocation_Cancel(t *testing.T) {
	pay, _ := NewPayment(cashOutParams())
	doc := newTestDocument(t, "100")
	doc.CompanyID = pay.CompanyID

	a, err := NewPaymentAllocation(pay, doc, d("50"), pay.PaymentDate, "first")
	require.NoError(t, err)
	assert.True(t, a.IsActive())

	require.NoError(t, a.Cancel("mistake", time.Now()))
	assert.Equal(t, AllocationStatusCancelled, a.Status)
	assert.Equal(t, "first\nmistake", a.Notes)
	assert.True(t, shared.IsState(a.Cancel("", time.Now())))

	other := newTestDocument(t, "100")
	_, err = NewPaymentAllocation(pay, other, d("1"), time.Now(), "")
	assert.True(t, shared.IsValidation(err), "cross-company allocation")
}
