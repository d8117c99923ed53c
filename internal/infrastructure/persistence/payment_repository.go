package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements settlement.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) find(ctx context.Context, companyID, id uuid.UUID, lock bool) (*settlement.Payment, error) {
	var model models.PaymentModel
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("company_id = ? AND id = ?", companyID, id).First(&model).Error; err != nil {
		return nil, notFound(err, "payment", id)
	}
	return model.ToDomain(), nil
}

// FindByID finds a payment within a company
func (r *GormPaymentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*settlement.Payment, error) {
	return r.find(ctx, companyID, id, false)
}

// FindByIDForUpdate locks the payment row until the transaction ends
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*settlement.Payment, error) {
	return r.find(ctx, companyID, id, true)
}

// Create inserts the payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *settlement.Payment) error {
	err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error
	return numberConflict(err, settlement.NumberScopePayment, payment.PaymentNumber)
}

// Save writes every column guarded by version
func (r *GormPaymentRepository) Save(ctx context.Context, payment *settlement.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND company_id = ? AND version = ?", payment.ID, payment.CompanyID, payment.Version-1).
		Select("*").
		Omit("id", "company_id", "created_at", "created_by").
		Updates(models.PaymentModelFromDomain(payment))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleVersion("payment", payment.PaymentNumber)
	}
	return nil
}

// UpdateSettlement writes the cached allocated amount only
func (r *GormPaymentRepository) UpdateSettlement(ctx context.Context, payment *settlement.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(map[string]any{
			"allocated_amount": payment.AllocatedAmount,
			"version":          payment.Version,
			"updated_at":       payment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleVersion("payment", payment.PaymentNumber)
	}
	return nil
}

// List returns one page of payments matching filter and the total match count
func (r *GormPaymentRepository) List(ctx context.Context, companyID uuid.UUID, filter settlement.PaymentFilter) ([]settlement.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("company_id = ?", companyID)
	if filter.PartyID != nil {
		query = query.Where("party_id = ?", *filter.PartyID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.DateFrom != nil {
		query = query.Where("payment_date >= ?", settlement.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("payment_date <= ?", settlement.DateOnly(*filter.DateTo))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`(LOWER(payment_number) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentModel
	if err := paginate(query, filter.Filter, PaymentSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	payments := make([]settlement.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, total, nil
}

// MaxSequence returns the highest numeric counter among payment numbers starting with prefix
func (r *GormPaymentRepository) MaxSequence(ctx context.Context, companyID uuid.UUID, prefix string) (int64, error) {
	return maxSequence(r.db.WithContext(ctx).Model(&models.PaymentModel{}), "payment_number", companyID, prefix)
}

// CashboxBalance sums confirmed money into the cashbox minus money out of it.
// Inflows are cash receipts on the cashbox and transfers landing in it; outflows
// are cash payments and transfers leaving it.
func (r *GormPaymentRepository) CashboxBalance(ctx context.Context, companyID, cashboxID uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Inflow  decimal.NullDecimal
		Outflow decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select(`
			SUM(CASE WHEN (cashbox_id = @box AND direction = @in) OR (destination_cashbox_id = @box AND direction = @internal) THEN amount ELSE 0 END) AS inflow,
			SUM(CASE WHEN cashbox_id = @box AND direction IN (@out, @internal) THEN amount ELSE 0 END) AS outflow`,
			map[string]any{
				"box":      cashboxID,
				"in":       settlement.DirectionIn,
				"out":      settlement.DirectionOut,
				"internal": settlement.DirectionInternal,
			}).
		Where("company_id = ? AND status = ?", companyID, settlement.PaymentStatusConfirmed).
		Where("cashbox_id = ? OR destination_cashbox_id = ?", cashboxID, cashboxID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Inflow.Decimal.Sub(row.Outflow.Decimal), nil
}

var _ settlement.PaymentRepository = (*GormPaymentRepository)(nil)
