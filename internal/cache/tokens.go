package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// BlacklistKey is the key under which a revoked token id is stored.
func BlacklistKey(jti string) string {
	return blacklistPrefix + jti
}

// RevokeToken blacklists jti until the token would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, expiresAt time.Time) error {
	if rdb == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti has been blacklisted.
func IsTokenRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	if rdb == nil || jti == "" {
		return false, nil
	}
	n, err := rdb.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
