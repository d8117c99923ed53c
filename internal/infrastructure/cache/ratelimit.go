package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRateLimitPrefix = "settlement:ratelimit:"

// InMemoryRateLimiter is a fixed window limiter local to one process
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewInMemoryRateLimiter allows limit requests per key in each window
func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop(window * 2)
	return l
}

// Allow counts one request against key
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string) (shared.RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return decide(l.limit, w.count, w.resetAt.Sub(now)), nil
}

// Close stops the cleanup goroutine
func (l *InMemoryRateLimiter) Close() error {
	l.once.Do(func() { close(l.stopCh) })
	return nil
}

func (l *InMemoryRateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if !now.Before(w.resetAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// RedisRateLimiter shares one fixed window per key across instances
type RedisRateLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisRateLimiter creates a limiter over an existing client
func NewRedisRateLimiter(client redis.Cmdable, keyPrefix string, limit int, window time.Duration) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = defaultRateLimitPrefix
	}
	return &RedisRateLimiter{client: client, keyPrefix: keyPrefix, limit: limit, window: window}
}

// Allow increments the window counter; the first hit starts the window's expiry
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (shared.RateDecision, error) {
	redisKey := l.keyPrefix + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return shared.RateDecision{}, fmt.Errorf("failed to count request: %w", err)
	}
	resetAfter := ttl.Val()
	if resetAfter < 0 {
		resetAfter = l.window
	}
	return decide(l.limit, int(incr.Val()), resetAfter), nil
}

func decide(limit, count int, resetAfter time.Duration) shared.RateDecision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return shared.RateDecision{
		Allowed:    count <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}
}

// NewRateLimiter picks the Redis limiter when a client is available
func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration, logger *zap.Logger) shared.RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("using Redis rate limiter", zap.Int("limit", limit), zap.Duration("window", window))
		return NewRedisRateLimiter(client, "", limit, window)
	}
	logger.Warn("Redis unavailable, rate limits are counted per instance",
		zap.Int("limit", limit), zap.Duration("window", window))
	return NewInMemoryRateLimiter(limit, window)
}
