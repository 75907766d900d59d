package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"
	"strings"
	"time" // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// CacheKey joins key parts with the conventional ':' separator.
func CacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// The boolean reports whether the key existed.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(val), dest)
}

// SetCache stores a JSON-encoded value in Redis with a TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// DeleteCache removes a key from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}
