// Package settlement implements the obligation-settlement use cases: period
// locking, the document and payment lifecycles and the allocation engine that
// links them. Every mutating call runs in one transaction; audit events are
// emitted only after it commits.
package settlement

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// Engine groups the settlement services over one shared core
type Engine struct {
	Periods     *PeriodService
	Documents   *DocumentService
	Payments    *PaymentService
	Allocations *AllocationService
	Directory   *DirectoryService
}

// NewEngine wires the services. Options.Scope is required; everything else has a default.
func NewEngine(opts Options) *Engine {
	c := newCore(opts)
	return &Engine{
		Periods:     &PeriodService{core: c},
		Documents:   &DocumentService{core: c},
		Payments:    &PaymentService{core: c},
		Allocations: &AllocationService{core: c},
		Directory:   &DirectoryService{core: c},
	}
}

func notFoundAccount(id uuid.UUID) error {
	return shared.NewNotFoundError("account", id)
}
