package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PlanCache keeps recent plan-service answers so repeated exits do not hit the user service.
type PlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPlanCache returns redis-backed cache.
func NewPlanCache(client *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{client: client, ttl: ttl}
}

// key keeps the plate's case: the plan service, session lookups and history all match plates exactly.
func (c *PlanCache) key(plate string) string {
	return fmt.Sprintf("plans:status:%s", strings.TrimSpace(plate))
}

// Get returns the cached answer. found is false on a miss.
func (c *PlanCache) Get(ctx context.Context, plate string) (bool, bool, error) {
	val, err := c.client.Get(ctx, c.key(plate)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// Set stores an answer for the configured TTL.
func (c *PlanCache) Set(ctx context.Context, plate string, active bool) error {
	val := "0"
	if active {
		val = "1"
	}
	return c.client.Set(ctx, c.key(plate), val, c.ttl).Err()
}

// Invalidate drops a cached answer, e.g. after a plan change notification.
func (c *PlanCache) Invalidate(ctx context.Context, plate string) error {
	return c.client.Del(ctx, c.key(plate)).Err()
}
