package members

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/havenhealth/member-chat-platform/internal/eligibility"
)

const defaultSnapshotTTL = 5 * time.Minute

// SnapshotCache caches eligibility snapshots in redis so repeated bootstraps
// within a short window skip the upstream call. Snapshots are cached whole;
// a refresh always replaces the entire value.
type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSnapshotCache creates a cache with the given TTL. A zero TTL uses the
// default. A nil redis client yields a nil cache, which is safe to use.
func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration) *SnapshotCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{redis: redisClient, ttl: ttl}
}

func snapshotKey(memberID, groupID string) string {
	return fmt.Sprintf("eligibility_snapshot:%s:%s", memberID, groupID)
}

// Get returns the cached snapshot, or nil on a miss.
func (c *SnapshotCache) Get(ctx context.Context, memberID, groupID string) (*eligibility.UserEligibility, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, snapshotKey(memberID, groupID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("members: read eligibility snapshot: %w", err)
	}

	var snapshot eligibility.UserEligibility
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("members: decode cached snapshot: %w", err)
	}
	return &snapshot, nil
}

// Put stores a snapshot under the cache TTL.
func (c *SnapshotCache) Put(ctx context.Context, memberID, groupID string, snapshot *eligibility.UserEligibility) error {
	if c == nil || c.redis == nil || snapshot == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("members: marshal eligibility snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey(memberID, groupID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("members: persist eligibility snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot so the next fetch hits upstream.
func (c *SnapshotCache) Invalidate(ctx context.Context, memberID, groupID string) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, snapshotKey(memberID, groupID)).Err(); err != nil {
		return fmt.Errorf("members: invalidate eligibility snapshot: %w", err)
	}
	return nil
}
