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

func sharedRoot() shared.CompanyAggregateRoot {
	return shared.NewCompanyAggregateRoot(uuid.New(), nil)
}

func fifoDoc(total string, due *time.Time, docDate time.Time) Document {
	return Document{
		CompanyAggregateRoot: sharedRoot(),
		TotalAmount:          d(total),
		AllocatedAmount:      decimal.Zero,
		Status:               DocumentStatusPending,
		DueDate:              due,
		DocumentDate:         docDate,
	}
}

func TestPlanFIFO(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("oldest due first, partial on the last", func(t *testing.T) {
		newer := fifoDoc("700", &mar, jan)
		older := fifoDoc("500", &feb, feb)

		lines := PlanFIFO(d("1000"), []Document{newer, older})
		require.Len(t, lines, 2)
		assert.Equal(t, older.ID, lines[0].DocumentID)
		assert.True(t, lines[0].Amount.Equal(d("500")))
		assert.Equal(t, newer.ID, lines[1].DocumentID)
		assert.True(t, lines[1].Amount.Equal(d("500")))
	})

	t.Run("undated documents come last, then by document date", func(t *testing.T) {
		undatedOld := fifoDoc("100", nil, jan)
		undatedNew := fifoDoc("100", nil, feb)
		dated := fifoDoc("100", &mar, mar)

		lines := PlanFIFO(d("250"), []Document{undatedNew, undatedOld, dated})
		require.Len(t, lines, 3)
		assert.Equal(t, dated.ID, lines[0].DocumentID)
		assert.Equal(t, undatedOld.ID, lines[1].DocumentID)
		assert.Equal(t, undatedNew.ID, lines[2].DocumentID)
		assert.True(t, lines[2].Amount.Equal(d("50")))
	})

	t.Run("uses unpaid amount and skips settled", func(t *testing.T) {
		partial := fifoDoc("300", &jan, jan)
		partial.AllocatedAmount = d("200")
		partial.Status = DocumentStatusPartial
		settled := fifoDoc("300", &jan, jan)
		settled.AllocatedAmount = d("300")
		settled.Status = DocumentStatusSettled

		lines := PlanFIFO(d("1000"), []Document{settled, partial})
		require.Len(t, lines, 1)
		assert.Equal(t, partial.ID, lines[0].DocumentID)
		assert.True(t, lines[0].Amount.Equal(d("100")))
	})

	t.Run("nothing to allocate", func(t *testing.T) {
		assert.Empty(t, PlanFIFO(decimal.Zero, []Document{fifoDoc("1", nil, jan)}))
		assert.Empty(t, PlanFIFO(d("10"), nil))
	})

	t.Run("same dates fall back to creation time", func(t *testing.T) {
		first := fifoDoc("100", &jan, jan)
		second := fifoDoc("100", &jan, jan)
		second.CreatedAt = first.CreatedAt.Add(time.Second)

		lines := PlanFIFO(d("100"), []Document{second, first})
		require.Len(t, lines, 1)
		assert.Equal(t, first.ID, lines[0].DocumentID)
	})
}

func TestSequenceKey(t *testing.T) {
	key := DocumentSequenceKey(uuid.New(), DocumentTypeSalesInvoice, 2026)
	assert.Equal(t, "SI-2026-00042", key.FormatNumber(42))
	assert.Equal(t, "SI-2026-100000", key.FormatNumber(100000))

	pay := PaymentSequenceKey(key.CompanyID, PaymentTypeBankTransfer, 2026)
	assert.Equal(t, "BT-2026-", pay.NumberPrefix())
	assert.NotEqual(t, key.String(), pay.String())
}
