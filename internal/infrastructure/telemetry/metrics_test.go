package telemetry

import (
	"context"
	"testing"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestSettlementMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewSettlementMetrics(provider.Meter("settlement"))
	require.NoError(t, err)

	ctx := context.Background()
	m.DocumentCreated(ctx, settlement.DocumentTypeSalesInvoice)
	m.DocumentCreated(ctx, settlement.DocumentTypeSalesInvoice)
	m.PaymentCreated(ctx, settlement.PaymentTypeBankIn)
	m.Allocated(ctx, 3, decimal.RequireFromString("150.25"))
	m.NumberConflict(ctx, settlement.NumberScopeDocument)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["settlement.documents.created"]))
	assert.Equal(t, int64(1), sumOf(t, data["settlement.payments.created"]))
	assert.Equal(t, int64(3), sumOf(t, data["settlement.allocations.created"]))
	assert.Equal(t, int64(1), sumOf(t, data["settlement.number.conflicts"]))

	docs := data["settlement.documents.created"].(metricdata.Sum[int64])
	typ, ok := docs.DataPoints[0].Attributes.Value(AttrDocumentType)
	require.True(t, ok)
	assert.Equal(t, attribute.StringValue(string(settlement.DocumentTypeSalesInvoice)), typ)

	hist, ok := data["settlement.allocation.amount"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.InDelta(t, 150.25, hist.DataPoints[0].Sum, 0.0001)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, mp.Meter("settlement"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewProfiler(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	_, err = NewProfiler(ProfilerConfig{Enabled: true}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "settlement",
		ProfileTypes:    []string{"cpu", "heap"},
	}, zap.NewNop())
	assert.ErrorContains(t, err, `unknown profile type "heap"`)
}
