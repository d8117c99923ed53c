package settlement

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// PartyType classifies a counterparty
type PartyType string

const (
	PartyTypeCustomer PartyType = "customer"
	PartyTypeSupplier PartyType = "supplier"
	PartyTypeEmployee PartyType = "employee"
	PartyTypeOther    PartyType = "other"
)

func (t PartyType) IsValid() bool {
	switch t {
	case PartyTypeCustomer, PartyTypeSupplier, PartyTypeEmployee, PartyTypeOther:
		return true
	}
	return false
}

// Party is a counterparty documents and payments refer to
type Party struct {
	shared.BaseEntity
	CompanyID uuid.UUID
	Code      string
	Name      string
	Type      PartyType
	IsActive  bool
}

// NewParty creates an active party
func NewParty(companyID uuid.UUID, code, name string, t PartyType) (*Party, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("COMPANY_REQUIRED", "company is required")
	}
	if name == "" {
		return nil, shared.NewValidationError("NAME_REQUIRED", "party name is required")
	}
	if !t.IsValid() {
		return nil, shared.NewValidationError("INVALID_PARTY_TYPE", "unknown party type %q", t)
	}
	return &Party{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		Code:       code,
		Name:       name,
		Type:       t,
		IsActive:   true,
	}, nil
}

// Account is a cashbox or bank account that payments move money through
type Account struct {
	shared.BaseEntity
	CompanyID     uuid.UUID
	Kind          AccountKind
	Code          string
	Name          string
	BankName      string
	AccountNumber string
	Currency      string
	IsActive      bool
}

// NewAccount creates an active cashbox or bank account
func NewAccount(companyID uuid.UUID, kind AccountKind, code, name string) (*Account, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewValidationError("COMPANY_REQUIRED", "company is required")
	}
	if kind != AccountCashbox && kind != AccountBank {
		return nil, shared.NewValidationError("INVALID_ACCOUNT_KIND", "account kind must be cashbox or bank")
	}
	if name == "" {
		return nil, shared.NewValidationError("NAME_REQUIRED", "account name is required")
	}
	return &Account{
		BaseEntity: shared.NewBaseEntity(),
		CompanyID:  companyID,
		Kind:       kind,
		Code:       code,
		Name:       name,
		Currency:   DefaultCurrency,
		IsActive:   true,
	}, nil
}

// EnsureUsable checks the account can carry a payment for companyID
func (a *Account) EnsureUsable(companyID uuid.UUID, kind AccountKind) error {
	if a.CompanyID != companyID {
		return shared.NewValidationError("ACCOUNT_COMPANY_MISMATCH", "%s %s belongs to another company", a.Kind, a.Name)
	}
	if a.Kind != kind {
		return shared.NewValidationError("ACCOUNT_KIND_MISMATCH", "account %s is a %s, expected %s", a.Name, a.Kind, kind)
	}
	if !a.IsActive {
		return shared.NewValidationError("ACCOUNT_INACTIVE", "%s %s is inactive", a.Kind, a.Name)
	}
	return nil
}
