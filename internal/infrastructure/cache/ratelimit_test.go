package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		l := NewInMemoryRateLimiter(3, time.Minute)
		defer l.Close()

		for i := 0; i < 3; i++ {
			d, err := l.Allow(ctx, "company:a")
			require.NoError(t, err)
			assert.True(t, d.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 2-i, d.Remaining)
		}
		d, err := l.Allow(ctx, "company:a")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, 3, d.Limit)
	})

	t.Run("separate windows per key", func(t *testing.T) {
		l := NewInMemoryRateLimiter(1, time.Minute)
		defer l.Close()

		d, _ := l.Allow(ctx, "company:a")
		assert.True(t, d.Allowed)
		d, _ = l.Allow(ctx, "company:a")
		assert.False(t, d.Allowed)
		d, _ = l.Allow(ctx, "company:b")
		assert.True(t, d.Allowed)
	})

	t.Run("window resets", func(t *testing.T) {
		l := NewInMemoryRateLimiter(1, time.Minute)
		defer l.Close()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return now }

		d, _ := l.Allow(ctx, "ip:10.0.0.1")
		assert.True(t, d.Allowed)
		now = now.Add(30 * time.Second)
		d, _ = l.Allow(ctx, "ip:10.0.0.1")
		assert.False(t, d.Allowed)
		assert.Equal(t, 30*time.Second, d.ResetAfter)

		now = now.Add(30 * time.Second)
		d, _ = l.Allow(ctx, "ip:10.0.0.1")
		assert.True(t, d.Allowed)
	})
}

func TestNewRateLimiter_FallsBackWithoutRedis(t *testing.T) {
	l := NewRateLimiter(nil, 10, time.Second, zap.NewNop())
	mem, ok := l.(*InMemoryRateLimiter)
	require.True(t, ok)
	_ = mem.Close()
}
