// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/models"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, logger.NewTestLogger(t)), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Store(ctx, "fp", successResponse("cached answer"), 300*time.Second)

	got, ok := c.Lookup(ctx, "fp")
	require.True(t, ok)
	assert.Equal(t, "cached answer", got.Message)
	assert.Equal(t, models.StatusSuccess, got.Status)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Store(ctx, "fp", successResponse("answer"), 300*time.Second)
	mr.FastForward(301 * time.Second)

	_, ok := c.Lookup(ctx, "fp")
	assert.False(t, ok)
}

func TestRedisCache_NeverStoresErrors(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	c.Store(ctx, "fp", &models.Response{Status: models.StatusError, Agent: "refund"}, time.Minute)

	_, ok := c.Lookup(ctx, "fp")
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryEvicted(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(redisKeyPrefix+"fp", "not json"))

	_, ok := c.Lookup(ctx, "fp")
	assert.False(t, ok)
	assert.False(t, mr.Exists(redisKeyPrefix+"fp"))
}

func TestRedisCache_DegradedBackendIsMiss(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Store(ctx, "fp", successResponse("answer"), time.Minute)
	mr.Close()

	// A dead backend degrades to a miss, never an error.
	_, ok := c.Lookup(ctx, "fp")
	assert.False(t, ok)
}

func TestRedisCache_LookupCommandErrorIsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, logger.NewTestLogger(t))

	mock.ExpectGet(redisKeyPrefix + "fp").SetErr(errors.New("connection reset by peer"))

	_, ok := c.Lookup(context.Background(), "fp")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_StoreUsesNativeTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, logger.NewTestLogger(t))

	resp := successResponse("answer")
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	mock.ExpectSet(redisKeyPrefix+"fp", data, 300*time.Second).SetVal("OK")

	c.Store(context.Background(), "fp", resp, 300*time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_StoreErrorIsSwallowed(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, logger.NewTestLogger(t))

	resp := successResponse("answer")
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	mock.ExpectSet(redisKeyPrefix+"fp", data, time.Minute).SetErr(errors.New("readonly replica"))

	// Store must not propagate backend failures to the request path.
	c.Store(context.Background(), "fp", resp, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}
