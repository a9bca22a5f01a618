package repique

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WarnGuard deduplicates warning notifications. Ticks overlap the warning
// window, so without a guard the same lead would be warned on every tick
// inside the window. The key includes assignedAt so a re-routed lead can be
// warned again for its new assignment.
type WarnGuard interface {
	// TryAcquire returns true exactly once per (lead, assignment) within ttl.
	TryAcquire(ctx context.Context, leadID uuid.UUID, assignedAt time.Time, ttl time.Duration) (bool, error)
}

// RedisWarnGuard backs WarnGuard with SET NX and a TTL.
type RedisWarnGuard struct {
	client redis.UniversalClient
}

func NewRedisWarnGuard(client redis.UniversalClient) *RedisWarnGuard {
	return &RedisWarnGuard{client: client}
}

func (g *RedisWarnGuard) TryAcquire(ctx context.Context, leadID uuid.UUID, assignedAt time.Time, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("repique:warn:%s:%d", leadID, assignedAt.Unix())
	return g.client.SetNX(ctx, key, 1, ttl).Result()
}

// NopWarnGuard always acquires. Used when no redis is configured; warnings
// may then repeat across ticks.
type NopWarnGuard struct{}

func (NopWarnGuard) TryAcquire(context.Context, uuid.UUID, time.Time, time.Duration) (bool, error) {
	return true, nil
}
