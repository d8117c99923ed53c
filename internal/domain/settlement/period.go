package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodStatus represents the lock state of an accounting month
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusLocked PeriodStatus = "locked"
	PeriodStatusClosed PeriodStatus = "closed"
)

func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodStatusOpen, PeriodStatusLocked, PeriodStatusClosed:
		return true
	}
	return false
}

func (s PeriodStatus) String() string { return string(s) }

// IsTerminal returns true once the period can never change again
func (s PeriodStatus) IsTerminal() bool {
	return s == PeriodStatusClosed
}

// Period is one calendar month of one company
type Period struct {
	shared.BaseAggregateRoot
	CompanyID uuid.UUID
	Year      int
	Month     int
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	LockedBy  *uuid.UUID
	LockedAt  *time.Time
	LockNotes string
}

// YearMonth returns the calendar month containing date
func YearMonth(date time.Time) (int, int) {
	return date.Year(), int(date.Month())
}

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewPeriod creates an open period for (year, month)
func NewPeriod(companyID uuid.UUID, year, month int) (*Period, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("COMPANY_REQUIRED", "company is required")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewValidationError("INVALID_MONTH", "month must be between 1 and 12, got %d", month)
	}
	if year < 1900 || year > 9999 {
		return nil, shared.NewValidationError("INVALID_YEAR", "year %d is out of range", year)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return &Period{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CompanyID:         companyID,
		Year:              year,
		Month:             month,
		StartDate:         start,
		EndDate:           start.AddDate(0, 1, -1),
		Status:            PeriodStatusOpen,
	}, nil
}

// IsOpen reports whether dated records may be created or edited
func (p *Period) IsOpen() bool {
	return p.Status == PeriodStatusOpen
}

// Contains reports whether date falls inside the period
func (p *Period) Contains(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// Lock moves an open period to locked
func (p *Period) Lock(actor uuid.UUID, notes string, now time.Time) error {
	if p.Status != PeriodStatusOpen {
		return shared.NewStateError("PERIOD_NOT_OPEN", "period %04d-%02d is %s and cannot be locked", p.Year, p.Month, p.Status)
	}
	p.Status = PeriodStatusLocked
	p.LockedAt = &now
	p.LockNotes = notes
	if actor != uuid.Nil {
		p.LockedBy = &actor
	}
	p.Touch(now)
	p.IncrementVersion()
	return nil
}

// Unlock moves a locked period back to open
func (p *Period) Unlock(notes string, now time.Time) error {
	switch p.Status {
	case PeriodStatusOpen:
		return shared.NewStateError("PERIOD_NOT_LOCKED", "period %04d-%02d is already open", p.Year, p.Month)
	case PeriodStatusClosed:
		return shared.NewStateError("PERIOD_CLOSED", "period %04d-%02d is closed and cannot be reopened", p.Year, p.Month)
	}
	p.Status = PeriodStatusOpen
	p.LockedBy = nil
	p.LockedAt = nil
	p.LockNotes = AppendNote(p.LockNotes, notes)
	p.Touch(now)
	p.IncrementVersion()
	return nil
}

// Close moves a locked period to its terminal state
func (p *Period) Close(now time.Time) error {
	if p.Status != PeriodStatusLocked {
		return shared.NewStateError("PERIOD_NOT_LOCKED", "period %04d-%02d must be locked before closing, status is %s", p.Year, p.Month, p.Status)
	}
	p.Status = PeriodStatusClosed
	p.Touch(now)
	p.IncrementVersion()
	return nil
}
