package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "token:blacklist:"

// RevocationChecker reports tokens revoked by the identity service before they expire
type RevocationChecker interface {
	// IsRevoked reports whether the token's JTI is blacklisted or its user's
	// sessions were invalidated after it was issued
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// RedisTokenBlacklist reads the blacklist the identity service maintains in Redis
type RedisTokenBlacklist struct {
	client redis.Cmdable
}

// NewRedisTokenBlacklist creates a blacklist reader over an existing client
func NewRedisTokenBlacklist(client redis.Cmdable) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func jtiKey(jti string) string { return blacklistKeyPrefix + "jti:" + jti }

func userKey(userID string) string { return blacklistKeyPrefix + "user:" + userID }

// IsRevoked checks the JTI entry, then the per-user invalidation timestamp
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if claims.ID != "" {
		exists, err := b.client.Exists(ctx, jtiKey(claims.ID)).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check token blacklist: %w", err)
		}
		if exists > 0 {
			return true, nil
		}
	}

	raw, err := b.client.Get(ctx, userKey(claims.UserID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return claims.IssuedAtTime().Unix() <= invalidatedAt, nil
}

// StaticRevocations is an in-process RevocationChecker for tests and single-node setups
type StaticRevocations struct {
	JTIs            map[string]bool
	UserInvalidated map[string]time.Time
}

// IsRevoked implements RevocationChecker
func (s StaticRevocations) IsRevoked(_ context.Context, claims *Claims) (bool, error) {
	if s.JTIs[claims.ID] {
		return true, nil
	}
	at, ok := s.UserInvalidated[claims.UserID]
	return ok && !claims.IssuedAtTime().After(at), nil
}

var (
	_ RevocationChecker = (*RedisTokenBlacklist)(nil)
	_ RevocationChecker = StaticRevocations{}
)
