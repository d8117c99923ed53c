package cache

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the Redis store when a client is available.
// Without Redis it falls back to process memory, which does not dedupe across instances.
func NewIdempotencyStore(client redis.Cmdable, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client != nil {
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, "")
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store. " +
		"Retried requests reaching another instance will not be deduplicated.")
	return NewInMemoryIdempotencyStore()
}
