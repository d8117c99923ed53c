package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedPeriod struct {
	ID    uint `gorm:"primaryKey"`
	Year  int
	Month int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedPeriod{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).Register(db))
	assert.Nil(t, db.Callback().Query().Get("settlement_timing:after_query"))
}

func TestDBTracingPlugin_RecordsQuerySpans(t *testing.T) {
	recorder := setupTestTracer(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	cfg.SlowQueryThresh = time.Nanosecond
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))

	ctx, parent := StartSpan(context.Background(), "period.lock")
	require.NoError(t, db.WithContext(ctx).Create(&tracedPeriod{Year: 2024, Month: 3}).Error)
	var got tracedPeriod
	require.NoError(t, db.WithContext(ctx).First(&got, "year = ? AND month = ?", 2024, 3).Error)
	parent.End()

	var sawSlow bool
	for _, span := range recorder.Ended() {
		if span.Name() == "period.lock" {
			continue
		}
		assert.Equal(t, parent.SpanContext().TraceID(), span.SpanContext().TraceID())
		if v, ok := attrMap(span.Attributes())["db.slow_query"]; ok && v.AsBool() {
			sawSlow = true
		}
	}
	assert.Greater(t, len(recorder.Ended()), 1)
	assert.True(t, sawSlow)
}

func TestNewDBTracingPlugin_DefaultsThreshold(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, plugin.config.SlowQueryThresh)
}
