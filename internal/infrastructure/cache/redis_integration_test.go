//go:build integration

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

type staticFloor struct{ highest int64 }

func (f staticFloor) Highest(context.Context, settlement.SequenceKey) (int64, error) {
	return f.highest, nil
}

func TestRedisSequenceGenerator_Integration(t *testing.T) {
	client := newRedisContainer(t)
	ctx := context.Background()

	t.Run("fresh counter starts at one", func(t *testing.T) {
		g := NewRedisSequenceGenerator(client, staticFloor{})
		key := settlement.DocumentSequenceKey(uuid.New(), settlement.DocumentTypeSalesInvoice, 2026)

		first, err := g.Next(ctx, key)
		require.NoError(t, err)
		second, err := g.Next(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "SI-2026-00001", first)
		assert.Equal(t, "SI-2026-00002", second)

		ttl, err := client.TTL(ctx, g.Key(key)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("fresh counter is seeded above stored numbers", func(t *testing.T) {
		g := NewRedisSequenceGenerator(client, staticFloor{highest: 41})
		key := settlement.PaymentSequenceKey(uuid.New(), settlement.PaymentTypeCashIn, 2026)

		number, err := g.Next(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "CI-2026-00042", number)
		number, err = g.Next(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "CI-2026-00043", number)
	})

	t.Run("concurrent callers never share a number", func(t *testing.T) {
		g := NewRedisSequenceGenerator(client, nil)
		key := settlement.DocumentSequenceKey(uuid.New(), settlement.DocumentTypePurchaseInvoice, 2026)

		var (
			mu   sync.Mutex
			seen = make(map[string]bool)
			wg   sync.WaitGroup
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				number, err := g.Next(ctx, key)
				assert.NoError(t, err)
				mu.Lock()
				seen[number] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, seen, 50)
	})
}

func TestRedisIdempotencyStore_Integration(t *testing.T) {
	client := newRedisContainer(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "test:idem:")
	key := uuid.NewString()

	_, found, err := store.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := store.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	resp, found, err := store.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, resp, "in-flight key has no response yet")

	require.NoError(t, store.Complete(ctx, key, shared.StoredResponse{
		Status: 201, ContentType: "application/json", Body: []byte(`{"success":true}`),
	}, time.Minute))

	resp, found, err = store.Lookup(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"success":true}`, string(resp.Body))

	require.NoError(t, store.Release(ctx, key))
	_, found, err = store.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisRateLimiter_Integration(t *testing.T) {
	client := newRedisContainer(t)
	ctx := context.Background()
	l := NewRedisRateLimiter(client, "test:ratelimit:", 2, time.Minute)
	key := "company:" + uuid.NewString()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.ResetAfter, time.Duration(0))
	assert.LessOrEqual(t, d.ResetAfter, time.Minute)

	ttl, err := client.PTTL(ctx, "test:ratelimit:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
