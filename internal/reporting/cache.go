package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "loomworks/internal/platform/redis"
)

const statsCacheKey = "loomworks:stats:v1"

// Cache snapshots the stats payload in Redis so dashboard refreshes don't
// re-scan every store. All methods are nil-safe; a nil Cache means Redis is
// not configured and every read recomputes.
type Cache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache returns nil when no Redis client is configured.
func NewCache(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached payload, or false on miss, decode failure, or any
// Redis error. Failures here only cost a recompute.
func (c *Cache) Get(ctx context.Context) (StatsPayload, bool) {
	if c == nil {
		return StatsPayload{}, false
	}
	raw, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return StatsPayload{}, false
	}
	var payload StatsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.WarnContext(ctx, "stats cache entry unreadable, recomputing", "error", err.Error())
		return StatsPayload{}, false
	}
	return payload, true
}

// Set stores the payload with the configured TTL. Errors are logged and
// swallowed; caching is best effort.
func (c *Cache) Set(ctx context.Context, payload StatsPayload) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "stats cache write failed", "error", err.Error())
	}
}
