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

// GormAllocationRepository implements settlement.AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create inserts an allocation
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *settlement.PaymentAllocation) error {
	return r.db.WithContext(ctx).Create(models.AllocationModelFromDomain(allocation)).Error
}

func (r *GormAllocationRepository) find(ctx context.Context, companyID, id uuid.UUID, lock bool) (*settlement.PaymentAllocation, error) {
	var model models.AllocationModel
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("company_id = ? AND id = ?", companyID, id).First(&model).Error; err != nil {
		return nil, notFound(err, "allocation", id)
	}
	return model.ToDomain(), nil
}

// FindByID finds an allocation within a company
func (r *GormAllocationRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*settlement.PaymentAllocation, error) {
	return r.find(ctx, companyID, id, false)
}

// FindByIDForUpdate locks the allocation row until the transaction ends
func (r *GormAllocationRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*settlement.PaymentAllocation, error) {
	return r.find(ctx, companyID, id, true)
}

// Save persists the active to cancelled transition, the only change an allocation admits
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *settlement.PaymentAllocation) error {
	result := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("id = ? AND status = ?", allocation.ID, settlement.AllocationStatusActive).
		Updates(map[string]any{
			"status":       allocation.Status,
			"notes":        allocation.Notes,
			"cancelled_at": allocation.CancelledAt,
			"updated_at":   allocation.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleVersion("allocation", allocation.ID)
	}
	return nil
}

func (r *GormAllocationRepository) list(ctx context.Context, column string, id uuid.UUID, activeOnly bool) ([]settlement.PaymentAllocation, error) {
	query := r.db.WithContext(ctx).Where(column+" = ?", id)
	if activeOnly {
		query = query.Where("status = ?", settlement.AllocationStatusActive)
	}
	var rows []models.AllocationModel
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	allocations := make([]settlement.PaymentAllocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations, nil
}

// ListByPayment lists the allocations funded by a payment, oldest first
func (r *GormAllocationRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID, activeOnly bool) ([]settlement.PaymentAllocation, error) {
	return r.list(ctx, "payment_id", paymentID, activeOnly)
}

// ListByDocument lists the allocations settling a document, oldest first
func (r *GormAllocationRepository) ListByDocument(ctx context.Context, documentID uuid.UUID, activeOnly bool) ([]settlement.PaymentAllocation, error) {
	return r.list(ctx, "document_id", documentID, activeOnly)
}

func (r *GormAllocationRepository) sumActive(ctx context.Context, column string, id uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("SUM(amount)").
		Where(column+" = ? AND status = ?", id, settlement.AllocationStatusActive).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum.Decimal, nil
}

// SumActiveByPayment totals the active allocations of a payment
func (r *GormAllocationRepository) SumActiveByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	return r.sumActive(ctx, "payment_id", paymentID)
}

// SumActiveByDocument totals the active allocations of a document
func (r *GormAllocationRepository) SumActiveByDocument(ctx context.Context, documentID uuid.UUID) (decimal.Decimal, error) {
	return r.sumActive(ctx, "document_id", documentID)
}

var _ settlement.AllocationRepository = (*GormAllocationRepository)(nil)
