package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/common/metrics"
	"support-orchestrator/internal/models"
)

const redisKeyPrefix = "respcache:"

// RedisCache implements Cache backed by Redis with native TTL expiry.
// Concurrent writes of the same fingerprint overlap benignly: entries
// are derived purely from input text and intent, so last write wins
// with an equivalent value.
type RedisCache struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisCache(client *redis.Client, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "response-cache"}),
	}
}

func (c *RedisCache) Lookup(ctx context.Context, fp string) (*models.Response, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+fp).Result()
	if err == redis.Nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		// A degraded cache is a miss, never a request failure.
		c.logger.WithError(err).Warn("cache lookup failed", nil)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var resp models.Response
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		c.logger.WithError(err).Warn("cache entry corrupt, evicting", nil)
		c.client.Del(ctx, redisKeyPrefix+fp)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &resp, true
}

func (c *RedisCache) Store(ctx context.Context, fp string, resp *models.Response, ttl time.Duration) {
	if resp == nil || !resp.Cacheable() {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).Warn("cache encode failed", nil)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+fp, data, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("cache store failed", nil)
	}
}
