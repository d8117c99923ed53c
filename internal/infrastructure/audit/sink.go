// Package audit delivers settlement audit events to logs, Redis streams and object storage.
package audit

import (
	"context"
	"errors"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"go.uber.org/zap"
)

// MultiSink fans a batch out to every sink. A failing or panicking sink does
// not stop the others; their errors are joined.
type MultiSink struct {
	sinks  []appsettlement.AuditSink
	logger *zap.Logger
}

// NewMultiSink creates a fan-out sink; nil sinks are skipped
func NewMultiSink(logger *zap.Logger, sinks ...appsettlement.AuditSink) *MultiSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MultiSink{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Emit delivers events to each sink in order
func (m *MultiSink) Emit(ctx context.Context, events []appsettlement.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := m.dispatch(ctx, s, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) dispatch(ctx context.Context, sink appsettlement.AuditSink, events []appsettlement.AuditEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("audit sink panicked", zap.Any("panic", r))
			err = errors.New("audit sink panicked")
		}
	}()
	return sink.Emit(ctx, events)
}

var _ appsettlement.AuditSink = (*MultiSink)(nil)
