// Package embedcache content-addresses embedding vectors in Redis so
// repeated ingestion or query text never pays for the same provider call
// twice. Failures are always swallowed: a cache miss or a Redis outage
// falls back to calling the provider, it never surfaces as an error to
// the caller.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 7 * 24 * time.Hour

// Cache wraps a Redis client for content-addressed embedding storage.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache from a Redis connection URL
// (redis://[:password@]host:port/db).
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

// Key returns the cache key for a (model, text) pair: the hex-encoded
// sha256 of the model identifier and text, so the same text embedded by
// two different models never collides.
func Key(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedcache:" + hex.EncodeToString(h[:])
}

// Get returns the cached vector for (model, text), and false on a miss or
// any Redis error — callers always fall through to the provider on false.
func (c *Cache) Get(ctx context.Context, model, text string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, Key(model, text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		slog.Warn("embedding cache decode failed", "error", err)
		return nil, false
	}
	return vec, true
}

// Put stores a vector for (model, text) with the cache's TTL. Errors are
// logged and swallowed: a failed write never fails the embedding call
// that produced the vector.
func (c *Cache) Put(ctx context.Context, model, text string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		slog.Warn("embedding cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, Key(model, text), raw, c.ttl).Err(); err != nil {
		slog.Warn("embedding cache write failed", "error", err)
	}
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
