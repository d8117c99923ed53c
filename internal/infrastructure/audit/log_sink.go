package audit

import (
	"context"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogSink writes one structured log line per audit event
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging through base, named "audit"
func NewLogSink(base *zap.Logger) *LogSink {
	return &LogSink{logger: base.Named("audit")}
}

// Emit logs each event with the request context fields
func (s *LogSink) Emit(ctx context.Context, events []appsettlement.AuditEvent) error {
	l := logger.Enrich(ctx, s.logger)
	for _, e := range events {
		fields := []zap.Field{
			zap.String("audit_id", e.ID.String()),
			zap.String("entity_type", string(e.EntityType)),
			zap.String("entity_id", e.EntityID.String()),
			zap.String("action", string(e.Action)),
			zap.String("company_id", e.CompanyID.String()),
			zap.Time("occurred_at", e.OccurredAt),
		}
		if e.ActorID != nil {
			fields = append(fields, zap.String("actor_id", e.ActorID.String()))
		}
		l.Info("audit event", fields...)
	}
	return nil
}

var _ appsettlement.AuditSink = (*LogSink)(nil)
