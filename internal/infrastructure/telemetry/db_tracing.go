package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span instrumentation
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // includes bind variables; development only
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns a disabled config with a 200ms slow query threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// DBTracingPlugin registers otelgorm plus a slow query marker. Row locks taken
// by the settlement repositories show up as long "SELECT ... FOR UPDATE" spans.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a plugin; call Register to attach it
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register attaches otelgorm and the timing callbacks to db
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerTiming(db, p.markSlow); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// registerTiming stamps the start time before each statement and runs after
// ahead of otelgorm's own after hook so the span is still recording
func registerTiming(db *gorm.DB, after func(*gorm.DB)) error {
	cb := db.Callback()
	steps := []error{
		cb.Create().Before("gorm:create").Register("settlement_timing:before_create", markStart),
		cb.Query().Before("gorm:query").Register("settlement_timing:before_query", markStart),
		cb.Update().Before("gorm:update").Register("settlement_timing:before_update", markStart),
		cb.Delete().Before("gorm:delete").Register("settlement_timing:before_delete", markStart),
		cb.Row().Before("gorm:row").Register("settlement_timing:before_row", markStart),
		cb.Raw().Before("gorm:raw").Register("settlement_timing:before_raw", markStart),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("settlement_timing:after_create", after),
		cb.Query().After("gorm:query").Before("otel:after:select").Register("settlement_timing:after_query", after),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("settlement_timing:after_update", after),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("settlement_timing:after_delete", after),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("settlement_timing:after_row", after),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("settlement_timing:after_raw", after),
	}
	return errors.Join(steps...)
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) markSlow(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
