package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPeriodRepository implements settlement.PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

func (r *GormPeriodRepository) find(ctx context.Context, companyID uuid.UUID, year, month int, lock bool) (*settlement.Period, error) {
	var model models.PeriodModel
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := query.
		Where("company_id = ? AND year = ? AND month = ?", companyID, year, month).
		First(&model).Error
	if err != nil {
		return nil, notFound(err, "period", fmt.Sprintf("%04d-%02d", year, month))
	}
	return model.ToDomain(), nil
}

// Find returns the period row for the month
func (r *GormPeriodRepository) Find(ctx context.Context, companyID uuid.UUID, year, month int) (*settlement.Period, error) {
	return r.find(ctx, companyID, year, month, false)
}

// FindForUpdate returns the period row under a write lock
func (r *GormPeriodRepository) FindForUpdate(ctx context.Context, companyID uuid.UUID, year, month int) (*settlement.Period, error) {
	return r.find(ctx, companyID, year, month, true)
}

// CreateIfAbsent inserts the period, doing nothing when the month already has a row
func (r *GormPeriodRepository) CreateIfAbsent(ctx context.Context, period *settlement.Period) (bool, error) {
	model := models.PeriodModelFromDomain(period)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Save writes the period guarded by its version
func (r *GormPeriodRepository) Save(ctx context.Context, period *settlement.Period) error {
	model := models.PeriodModelFromDomain(period)
	result := r.db.WithContext(ctx).
		Model(&models.PeriodModel{}).
		Where("id = ? AND version = ?", period.ID, period.Version-1).
		Select("status", "locked_by", "locked_at", "lock_notes", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleVersion("period", fmt.Sprintf("%04d-%02d", period.Year, period.Month))
	}
	return nil
}

// ListByYear returns the stored periods of a year ordered by month
func (r *GormPeriodRepository) ListByYear(ctx context.Context, companyID uuid.UUID, year int) ([]settlement.Period, error) {
	var rows []models.PeriodModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND year = ?", companyID, year).
		Order("month ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	periods := make([]settlement.Period, len(rows))
	for i := range rows {
		periods[i] = *rows[i].ToDomain()
	}
	return periods, nil
}

var _ settlement.PeriodRepository = (*GormPeriodRepository)(nil)
