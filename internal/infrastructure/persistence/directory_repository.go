package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartyRepository implements settlement.PartyRepository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// FindByID finds a party within a company
func (r *GormPartyRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*settlement.Party, error) {
	var model models.PartyModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "party", id)
	}
	return model.ToDomain(), nil
}

// Create inserts a party
func (r *GormPartyRepository) Create(ctx context.Context, party *settlement.Party) error {
	return r.db.WithContext(ctx).Create(models.PartyModelFromDomain(party)).Error
}

// List returns the parties of a company by name
func (r *GormPartyRepository) List(ctx context.Context, companyID uuid.UUID) ([]settlement.Party, error) {
	var rows []models.PartyModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	parties := make([]settlement.Party, len(rows))
	for i := range rows {
		parties[i] = *rows[i].ToDomain()
	}
	return parties, nil
}

// GormAccountRepository implements settlement.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account in any company; callers check ownership
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "account", id)
	}
	return model.ToDomain(), nil
}

// Create inserts an account
func (r *GormAccountRepository) Create(ctx context.Context, account *settlement.Account) error {
	return r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
}

// List returns the accounts of a company, optionally of one kind
func (r *GormAccountRepository) List(ctx context.Context, companyID uuid.UUID, kind settlement.AccountKind) ([]settlement.Account, error) {
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if kind != settlement.AccountNone {
		query = query.Where("kind = ?", kind)
	}
	var rows []models.AccountModel
	if err := query.Order("kind ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]settlement.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

var (
	_ settlement.PartyRepository   = (*GormPartyRepository)(nil)
	_ settlement.AccountRepository = (*GormAccountRepository)(nil)
)
