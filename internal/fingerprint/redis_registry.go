package fingerprint

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the set when no key is configured.
const DefaultRedisKey = "metaofm:processed"

// RedisRegistry stores fingerprints in a Redis set. SADD is atomic, so Claim
// needs no extra locking even across workers.
type RedisRegistry struct {
	rdb redis.Cmdable
	key string
}

func NewRedisRegistry(rdb redis.Cmdable, key string) *RedisRegistry {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRegistry{rdb: rdb, key: key}
}

func (r *RedisRegistry) Contains(ctx context.Context, fp Fingerprint) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, r.key, string(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("registry lookup: %w", err)
	}
	return ok, nil
}

func (r *RedisRegistry) Add(ctx context.Context, fp Fingerprint) error {
	_, err := r.Claim(ctx, fp)
	return err
}

func (r *RedisRegistry) Claim(ctx context.Context, fp Fingerprint) (bool, error) {
	if fp == "" {
		return false, errEmptyFingerprint
	}
	n, err := r.rdb.SAdd(ctx, r.key, string(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("registry claim: %w", err)
	}
	return n == 1, nil
}
