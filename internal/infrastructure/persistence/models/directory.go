package models

import (
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
)

// PartyModel is a counterparty documents and payments refer to
type PartyModel struct {
	BaseModel
	CompanyID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Code      string               `gorm:"type:varchar(50)"`
	Name      string               `gorm:"type:varchar(200);not null"`
	Type      settlement.PartyType `gorm:"type:varchar(20);not null"`
	IsActive  bool                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartyModel) TableName() string {
	return "parties"
}

// ToDomain converts the persistence model to a domain Party
func (m *PartyModel) ToDomain() *settlement.Party {
	return &settlement.Party{
		BaseEntity: m.BaseModel.ToDomain(),
		CompanyID:  m.CompanyID,
		Code:       m.Code,
		Name:       m.Name,
		Type:       m.Type,
		IsActive:   m.IsActive,
	}
}

// PartyModelFromDomain creates a persistence model from a domain Party
func PartyModelFromDomain(p *settlement.Party) *PartyModel {
	m := &PartyModel{
		CompanyID: p.CompanyID,
		Code:      p.Code,
		Name:      p.Name,
		Type:      p.Type,
		IsActive:  p.IsActive,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// AccountModel is a cashbox or bank account payments move money through
type AccountModel struct {
	BaseModel
	CompanyID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	Kind          settlement.AccountKind `gorm:"type:varchar(20);not null;index"`
	Code          string                 `gorm:"type:varchar(50)"`
	Name          string                 `gorm:"type:varchar(200);not null"`
	BankName      string                 `gorm:"type:varchar(200)"`
	AccountNumber string                 `gorm:"type:varchar(50)"`
	Currency      string                 `gorm:"type:varchar(3);not null"`
	IsActive      bool                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "cash_accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *settlement.Account {
	return &settlement.Account{
		BaseEntity:    m.BaseModel.ToDomain(),
		CompanyID:     m.CompanyID,
		Kind:          m.Kind,
		Code:          m.Code,
		Name:          m.Name,
		BankName:      m.BankName,
		AccountNumber: m.AccountNumber,
		Currency:      m.Currency,
		IsActive:      m.IsActive,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *settlement.Account) *AccountModel {
	m := &AccountModel{
		CompanyID:     a.CompanyID,
		Kind:          a.Kind,
		Code:          a.Code,
		Name:          a.Name,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		Currency:      a.Currency,
		IsActive:      a.IsActive,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}

// All lists every settlement model in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&PartyModel{},
		&AccountModel{},
		&PeriodModel{},
		&DocumentModel{},
		&DocumentLineModel{},
		&PaymentModel{},
		&AllocationModel{},
	}
}
