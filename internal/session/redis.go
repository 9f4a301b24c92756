package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"support-orchestrator/internal/models"
)

const redisKeyPrefix = "session:"

// RedisRepository implements Repository backed by Redis, so session
// state survives process restarts. Keys carry a retention TTL of
// twice the idle timeout; expiry semantics are still enforced by the
// manager against LastActivity, the key TTL only bounds storage.
type RedisRepository struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisRepository(client *redis.Client, idleTimeout time.Duration) *RedisRepository {
	return &RedisRepository{
		client:    client,
		retention: 2 * idleTimeout,
	}
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (r *RedisRepository) Put(ctx context.Context, sess *models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+sess.ID, data, r.retention).Err(); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *RedisRepository) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(redisKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan sessions: %w", err)
	}
	return ids, nil
}

func (r *RedisRepository) Close() error {
	return nil // client lifecycle is owned by the composition root
}
