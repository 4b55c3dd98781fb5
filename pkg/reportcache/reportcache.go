// Package reportcache caches computed project/sprint reports in Redis for a
// short TTL, the same store C2's embedding cache and C7's result cache use,
// rather than standing up a dedicated cache store for a third concern.
package reportcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Cache wraps a Redis client for report caching, keyed by (project_id,
// report_name).
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache from a Redis connection URL.
func New(url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Cache{client: redis.NewClient(opts), ttl: defaultTTL}, nil
}

// NewFromClient wraps an existing Redis client, for tests against
// miniredis or a shared connection pool.
func NewFromClient(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

func key(projectID, reportName string) string {
	return "reportcache:" + projectID + ":" + reportName
}

// Get unmarshals the cached report for (projectID, reportName) into dest,
// returning false on a cache miss or any Redis error.
func (c *Cache) Get(ctx context.Context, projectID, reportName string, dest any) bool {
	raw, err := c.client.Get(ctx, key(projectID, reportName)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("report cache read failed", "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("report cache decode failed", "error", err)
		return false
	}
	return true
}

// Put stores report under (projectID, reportName) for the cache TTL.
// Failures are logged and swallowed: a cache-store failure never fails the
// caller's request.
func (c *Cache) Put(ctx context.Context, projectID, reportName string, report any) {
	raw, err := json.Marshal(report)
	if err != nil {
		slog.Warn("report cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, key(projectID, reportName), raw, c.ttl).Err(); err != nil {
		slog.Warn("report cache write failed", "error", err)
	}
}

// Invalidate drops the cached report for (projectID, reportName), used by
// services after a mutation that would make a cached report stale before its
// TTL expires.
func (c *Cache) Invalidate(ctx context.Context, projectID, reportName string) {
	if err := c.client.Del(ctx, key(projectID, reportName)).Err(); err != nil {
		slog.Warn("report cache invalidate failed", "error", err)
	}
}
