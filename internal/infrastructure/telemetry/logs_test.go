package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingExporter keeps exported log bodies in memory
type recordingExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) messages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "settlement",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, provider.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, provider.Bridge(base))
	assert.NoError(t, provider.ForceFlush(ctx))
	assert.NoError(t, provider.Shutdown(ctx))
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestLoggerProvider_BridgeTeesToBothOutputs(t *testing.T) {
	exporter := &recordingExporter{}
	provider := &LoggerProvider{
		provider: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter))),
		logger:   zap.NewNop(),
		config:   LogsConfig{Enabled: true, ServiceName: "settlement"},
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	core, recorded := observer.New(zapcore.InfoLevel)
	logger := provider.Bridge(zap.New(core)).With(zap.String("company_id", "c-1"))

	logger.Debug("below threshold")
	logger.Info("payment allocated")
	logger.Warn("number conflict")
	require.NoError(t, provider.ForceFlush(context.Background()))

	assert.Equal(t, 2, recorded.Len())
	assert.Equal(t, []string{"payment allocated", "number conflict"}, exporter.messages())
}

func TestLevelFilterCore(t *testing.T) {
	inner, _ := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	child := core.With([]zapcore.Field{zap.String("k", "v")})
	assert.False(t, child.Enabled(zapcore.InfoLevel))

	ce := core.Check(zapcore.Entry{Level: zapcore.InfoLevel}, nil)
	assert.Nil(t, ce)
}
