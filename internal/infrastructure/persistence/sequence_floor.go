package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"gorm.io/gorm"
)

// SequenceFloor reads the highest counter already stored for a sequence.
// It seeds external counters that start behind the database.
type SequenceFloor struct {
	db *gorm.DB
}

// NewSequenceFloor creates a SequenceFloor over db
func NewSequenceFloor(db *gorm.DB) *SequenceFloor {
	return &SequenceFloor{db: db}
}

// Highest returns the largest stored counter of key, or 0 when none exists
func (f *SequenceFloor) Highest(ctx context.Context, key settlement.SequenceKey) (int64, error) {
	switch key.Scope {
	case settlement.NumberScopePayment:
		return NewGormPaymentRepository(f.db).MaxSequence(ctx, key.CompanyID, key.NumberPrefix())
	default:
		return NewGormDocumentRepository(f.db).MaxSequence(ctx, key.CompanyID, key.NumberPrefix())
	}
}
