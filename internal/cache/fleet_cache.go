// Package cache holds the short-TTL read cache in front of the fleet map
// snapshot query. Wired only when REDIS_ADDR is set; a nil cache is a no-op
// so controllers never branch on configuration.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const fleetSnapshotKey = "fleet:snapshot"

type FleetCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFleetCache connects to addr. Returns nil when addr is empty.
func NewFleetCache(addr, password string, ttl time.Duration) *FleetCache {
	if addr == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &FleetCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot payload, if any.
func (c *FleetCache) Get(ctx context.Context) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, fleetSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).Warn("Fleet snapshot cache read failed, falling back to DB.")
		return nil, false
	}
	return payload, true
}

// Set stores the snapshot payload with the configured TTL.
func (c *FleetCache) Set(ctx context.Context, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, fleetSnapshotKey, payload, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("Fleet snapshot cache write failed.")
	}
}

// Invalidate drops the cached snapshot; called after every accepted ingest.
func (c *FleetCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, fleetSnapshotKey).Err(); err != nil {
		logrus.WithError(err).Warn("Fleet snapshot cache invalidation failed.")
	}
}
