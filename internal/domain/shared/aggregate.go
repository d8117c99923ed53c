package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// CompanyAggregateRoot scopes an aggregate to the company that owns it
type CompanyAggregateRoot struct {
	BaseAggregateRoot
	CompanyID uuid.UUID
	BranchID  *uuid.UUID
	CreatedBy *uuid.UUID
}

// NewCompanyAggregateRoot creates a company-scoped aggregate root
func NewCompanyAggregateRoot(companyID uuid.UUID, branchID *uuid.UUID) CompanyAggregateRoot {
	return CompanyAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		CompanyID:         companyID,
		BranchID:          branchID,
	}
}

// SetCreatedBy records the actor who created the record
func (c *CompanyAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID == uuid.Nil {
		return
	}
	c.CreatedBy = &userID
}
