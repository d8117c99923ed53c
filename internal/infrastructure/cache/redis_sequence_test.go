package cache

import (
	"testing"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRedisSequenceGenerator_Key(t *testing.T) {
	companyID := uuid.MustParse("9b2f0a51-3c4d-4e5f-8a9b-0c1d2e3f4a5b")

	g := NewRedisSequenceGenerator(nil, nil)
	key := settlement.DocumentSequenceKey(companyID, settlement.DocumentTypeSalesInvoice, 2026)
	assert.Equal(t, "settlement:seq:9b2f0a51-3c4d-4e5f-8a9b-0c1d2e3f4a5b:document:SI:2026", g.Key(key))

	g = NewRedisSequenceGenerator(nil, nil, WithSequenceKeyPrefix("erp:numbers:"))
	key = settlement.PaymentSequenceKey(companyID, settlement.PaymentTypeBankOut, 2027)
	assert.Equal(t, "erp:numbers:9b2f0a51-3c4d-4e5f-8a9b-0c1d2e3f4a5b:payment:BO:2027", g.Key(key))
}
