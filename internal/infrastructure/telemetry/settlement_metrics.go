package telemetry

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// SettlementMetrics records settlement activity as OpenTelemetry instruments
type SettlementMetrics struct {
	documentsCreated *Counter
	paymentsCreated  *Counter
	allocations      *Counter
	allocatedAmount  *Histogram
	numberConflicts  *Counter
}

// NewSettlementMetrics registers the settlement instruments on meter
func NewSettlementMetrics(meter metric.Meter) (*SettlementMetrics, error) {
	var (
		m   SettlementMetrics
		err error
	)
	if m.documentsCreated, err = NewCounter(meter, "settlement.documents.created", "Documents created", "{document}"); err != nil {
		return nil, err
	}
	if m.paymentsCreated, err = NewCounter(meter, "settlement.payments.created", "Payments created", "{payment}"); err != nil {
		return nil, err
	}
	if m.allocations, err = NewCounter(meter, "settlement.allocations.created", "Allocation rows created", "{allocation}"); err != nil {
		return nil, err
	}
	if m.allocatedAmount, err = NewHistogram(meter, "settlement.allocation.amount", "Amount settled per allocate call", "1"); err != nil {
		return nil, err
	}
	if m.numberConflicts, err = NewCounter(meter, "settlement.number.conflicts", "Generated numbers rejected as duplicates", "{conflict}"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *SettlementMetrics) DocumentCreated(ctx context.Context, docType settlement.DocumentType) {
	m.documentsCreated.Inc(ctx, AttrDocumentType.String(string(docType)))
}

func (m *SettlementMetrics) PaymentCreated(ctx context.Context, payType settlement.PaymentType) {
	m.paymentsCreated.Inc(ctx, AttrPaymentType.String(string(payType)))
}

func (m *SettlementMetrics) Allocated(ctx context.Context, count int, amount decimal.Decimal) {
	m.allocations.Add(ctx, int64(count))
	m.allocatedAmount.Record(ctx, amount.InexactFloat64())
}

func (m *SettlementMetrics) NumberConflict(ctx context.Context, scope settlement.NumberScope) {
	m.numberConflicts.Inc(ctx, AttrNumberScope.String(string(scope)))
}
