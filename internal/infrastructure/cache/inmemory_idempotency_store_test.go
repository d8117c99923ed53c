package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must lose")

	resp, found, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, resp)

	body := []byte(`{"id":1}`)
	require.NoError(t, store.Complete(ctx, "k1", shared.StoredResponse{Status: 201, Body: body}, time.Hour))
	body[0] = 'X'

	resp, found, err = store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, `{"id":1}`, string(resp.Body), "stored body is a copy")

	require.NoError(t, store.Release(ctx, "k1"))
	_, found, err = store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ok, err := store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, found, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = store.Reserve(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")

	now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 0, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore_FallsBackWithoutRedis(t *testing.T) {
	store := NewIdempotencyStore(nil, zap.NewNop())
	defer store.Close()
	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)
}
