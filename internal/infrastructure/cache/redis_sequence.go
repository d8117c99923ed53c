package cache

import (
	"context"
	"fmt"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultSequencePrefix = "settlement:seq:"

// sequenceTTL outlives the yearly sequences it holds
const sequenceTTL = 400 * 24 * time.Hour

// raiseSequence lifts a counter above floor and returns the next value
var raiseSequence = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur <= floor then
  redis.call('SET', KEYS[1], floor + 1, 'KEEPTTL')
  return floor + 1
end
return redis.call('INCR', KEYS[1])
`)

// SequenceFloor reports the highest counter already persisted for a key
type SequenceFloor interface {
	Highest(ctx context.Context, key settlement.SequenceKey) (int64, error)
}

// RedisSequenceGenerator hands out candidate numbers with INCR, one counter per
// company, branch, prefix and year. A fresh counter is seeded from the floor so it
// does not replay numbers already stored.
type RedisSequenceGenerator struct {
	client    redis.Cmdable
	floor     SequenceFloor
	keyPrefix string
	logger    *zap.Logger
}

// SequenceOption configures a RedisSequenceGenerator
type SequenceOption func(*RedisSequenceGenerator)

// WithSequenceKeyPrefix overrides the Redis key prefix
func WithSequenceKeyPrefix(prefix string) SequenceOption {
	return func(g *RedisSequenceGenerator) {
		if prefix != "" {
			g.keyPrefix = prefix
		}
	}
}

// WithSequenceLogger sets the logger
func WithSequenceLogger(logger *zap.Logger) SequenceOption {
	return func(g *RedisSequenceGenerator) {
		g.logger = logger
	}
}

// NewRedisSequenceGenerator creates a generator; floor may be nil
func NewRedisSequenceGenerator(client redis.Cmdable, floor SequenceFloor, opts ...SequenceOption) *RedisSequenceGenerator {
	g := &RedisSequenceGenerator{
		client:    client,
		floor:     floor,
		keyPrefix: defaultSequencePrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key returns the Redis key backing a sequence
func (g *RedisSequenceGenerator) Key(key settlement.SequenceKey) string {
	return g.keyPrefix + key.String()
}

// Next returns the next candidate number for key
func (g *RedisSequenceGenerator) Next(ctx context.Context, key settlement.SequenceKey) (string, error) {
	redisKey := g.Key(key)
	n, err := g.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to increment sequence %s: %w", redisKey, err)
	}
	if n == 1 {
		if err := g.client.Expire(ctx, redisKey, sequenceTTL).Err(); err != nil {
			g.logger.Warn("failed to set sequence ttl", zap.String("key", redisKey), zap.Error(err))
		}
		if g.floor != nil {
			n, err = g.seed(ctx, key, redisKey)
			if err != nil {
				return "", err
			}
		}
	}
	return key.FormatNumber(n), nil
}

func (g *RedisSequenceGenerator) seed(ctx context.Context, key settlement.SequenceKey, redisKey string) (int64, error) {
	highest, err := g.floor.Highest(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence floor for %s: %w", redisKey, err)
	}
	if highest == 0 {
		return 1, nil
	}
	n, err := raiseSequence.Run(ctx, g.client, []string{redisKey}, highest).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to seed sequence %s: %w", redisKey, err)
	}
	g.logger.Info("sequence seeded from database",
		zap.String("key", redisKey),
		zap.Int64("floor", highest),
	)
	return n, nil
}

var _ appsettlement.SequenceGenerator = (*RedisSequenceGenerator)(nil)
