package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodService manages the open/locked/closed state of accounting months
type PeriodService struct {
	core *core
}

// GetOrCreate returns the period containing date, creating it open when missing
func (s *PeriodService) GetOrCreate(ctx context.Context, companyID uuid.UUID, date time.Time) (*PeriodResponse, error) {
	var resp *PeriodResponse
	err := traced(ctx, "period", "get_or_create", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			year, month := settlement.YearMonth(date)
			period, err := s.ensure(ctx, tx, companyID, year, month)
			if err != nil {
				return err
			}
			resp = toPeriodResponse(period)
			return nil
		})
	})
	return resp, err
}

// ensure creates the period row when missing and returns it
func (s *PeriodService) ensure(ctx context.Context, tx *txContext, companyID uuid.UUID, year, month int) (*settlement.Period, error) {
	fresh, err := settlement.NewPeriod(companyID, year, month)
	if err != nil {
		return nil, err
	}
	created, err := tx.repos.Periods().CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		tx.trail.record(companyID, AuditEntityPeriod, fresh.ID, AuditActionCreated, nil, toPeriodResponse(fresh))
	}
	return tx.repos.Periods().FindForUpdate(ctx, companyID, year, month)
}

// IsOpen reports whether the month accepts new or edited records. A missing period is open.
func (s *PeriodService) IsOpen(ctx context.Context, companyID uuid.UUID, year, month int) (bool, error) {
	var open bool
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		period, err := repos.Periods().Find(ctx, companyID, year, month)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				open = true
				return nil
			}
			return err
		}
		open = period.IsOpen()
		return nil
	})
	return open, err
}

// ValidateOpen fails with a StateError unless the period containing date is open
func (s *PeriodService) ValidateOpen(ctx context.Context, companyID uuid.UUID, date time.Time) error {
	return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
		return s.core.validateOpen(ctx, tx, companyID, date)
	})
}

// Lock freezes an open month
func (s *PeriodService) Lock(ctx context.Context, companyID uuid.UUID, year, month int, notes string) (*PeriodResponse, error) {
	var resp *PeriodResponse
	err := traced(ctx, "period", "lock", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			period, err := s.ensure(ctx, tx, companyID, year, month)
			if err != nil {
				return err
			}
			before := toPeriodResponse(period)
			if err := period.Lock(tx.actor.UserID, notes, tx.now); err != nil {
				return err
			}
			if err := tx.repos.Periods().Save(ctx, period); err != nil {
				return err
			}
			resp = toPeriodResponse(period)
			tx.trail.record(companyID, AuditEntityPeriod, period.ID, AuditActionLocked, before, resp)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("period locked",
			zap.String("company_id", companyID.String()),
			zap.Int("year", year),
			zap.Int("month", month),
		)
	}
	return resp, err
}

// Unlock reopens a locked month. Closed months stay closed.
func (s *PeriodService) Unlock(ctx context.Context, companyID uuid.UUID, year, month int, notes string) (*PeriodResponse, error) {
	var resp *PeriodResponse
	err := traced(ctx, "period", "unlock", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			period, err := s.existing(ctx, tx, companyID, year, month)
			if err != nil {
				return err
			}
			before := toPeriodResponse(period)
			if err := period.Unlock(notes, tx.now); err != nil {
				return err
			}
			if err := tx.repos.Periods().Save(ctx, period); err != nil {
				return err
			}
			resp = toPeriodResponse(period)
			tx.trail.record(companyID, AuditEntityPeriod, period.ID, AuditActionUnlocked, before, resp)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("period unlocked",
			zap.String("company_id", companyID.String()),
			zap.Int("year", year),
			zap.Int("month", month),
		)
	}
	return resp, err
}

// Close makes a locked month permanently immutable
func (s *PeriodService) Close(ctx context.Context, companyID uuid.UUID, year, month int) (*PeriodResponse, error) {
	var resp *PeriodResponse
	err := traced(ctx, "period", "close", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			period, err := s.existing(ctx, tx, companyID, year, month)
			if err != nil {
				return err
			}
			before := toPeriodResponse(period)
			if err := period.Close(tx.now); err != nil {
				return err
			}
			if err := tx.repos.Periods().Save(ctx, period); err != nil {
				return err
			}
			resp = toPeriodResponse(period)
			tx.trail.record(companyID, AuditEntityPeriod, period.ID, AuditActionClosed, before, resp)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("period closed",
			zap.String("company_id", companyID.String()),
			zap.Int("year", year),
			zap.Int("month", month),
		)
	}
	return resp, err
}

// existing locks a stored period; a missing row is an open month and so has nothing to unlock or close
func (s *PeriodService) existing(ctx context.Context, tx *txContext, companyID uuid.UUID, year, month int) (*settlement.Period, error) {
	period, err := tx.repos.Periods().FindForUpdate(ctx, companyID, year, month)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewStateError("PERIOD_NOT_LOCKED", "period %04d-%02d is open", year, month)
	}
	return period, err
}

// Get returns the period for a month, reporting missing months as open
func (s *PeriodService) Get(ctx context.Context, companyID uuid.UUID, year, month int) (*PeriodResponse, error) {
	var resp *PeriodResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		period, err := repos.Periods().Find(ctx, companyID, year, month)
		if errors.Is(err, shared.ErrNotFound) {
			resp, err = virtualPeriod(companyID, year, month)
			return err
		}
		if err != nil {
			return err
		}
		resp = toPeriodResponse(period)
		return nil
	})
	return resp, err
}

// List returns all twelve months of a year in order
func (s *PeriodService) List(ctx context.Context, companyID uuid.UUID, year int) ([]PeriodResponse, error) {
	var out []PeriodResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stored, err := repos.Periods().ListByYear(ctx, companyID, year)
		if err != nil {
			return err
		}
		byMonth := make(map[int]*settlement.Period, len(stored))
		for i := range stored {
			byMonth[stored[i].Month] = &stored[i]
		}
		out = make([]PeriodResponse, 0, 12)
		for month := 1; month <= 12; month++ {
			if p, ok := byMonth[month]; ok {
				out = append(out, *toPeriodResponse(p))
				continue
			}
			v, err := virtualPeriod(companyID, year, month)
			if err != nil {
				return err
			}
			out = append(out, *v)
		}
		return nil
	})
	return out, err
}
