package jobindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// Compile-time check that RedisIndex implements Index.
var _ Index = (*RedisIndex)(nil)

// RedisIndex is the shared implementation of Index, for deployments
// running more than one API instance.
type RedisIndex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIndex creates an index over an existing Redis client. A
// non-positive ttl uses DefaultTTL.
func NewRedisIndex(client *redis.Client, ttl time.Duration) *RedisIndex {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisIndex{client: client, ttl: ttl}
}

// Record stores the mapping with TTL expiry.
func (r *RedisIndex) Record(ctx context.Context, tenantID uuid.UUID, jobID string, t provider.Type) error {
	if err := r.client.Set(ctx, redisKey(tenantID, jobID), string(t), r.ttl).Err(); err != nil {
		return fmt.Errorf("jobindex: record: %w", err)
	}
	return nil
}

// Lookup returns the owning provider type, or false when the key is
// missing or expired.
func (r *RedisIndex) Lookup(ctx context.Context, tenantID uuid.UUID, jobID string) (provider.Type, bool, error) {
	val, err := r.client.Get(ctx, redisKey(tenantID, jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("jobindex: lookup: %w", err)
	}
	return provider.Type(val), true, nil
}

func redisKey(tenantID uuid.UUID, jobID string) string {
	return "jobindex:" + tenantID.String() + ":" + jobID
}
