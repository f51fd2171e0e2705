package redis

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/batgear/batstore-backend/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("BATSTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BATSTORE_TEST_REDIS_ADDR not set")
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, c.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBlacklist_DisabledIsNoop(t *testing.T) {
	require.Nil(t, GetClient())
	ctx := context.Background()

	assert.NoError(t, BlacklistToken(ctx, "tok", time.Minute))
	revoked, err := IsTokenBlacklisted(ctx, "tok")
	assert.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, Close())
}

func TestBlacklist_Redis(t *testing.T) {
	addr := os.Getenv("BATSTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BATSTORE_TEST_REDIS_ADDR not set")
	}
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	require.NoError(t, Init(&config.RedisConfig{Host: host, Port: port}))
	t.Cleanup(func() { _ = Close() })

	ctx := context.Background()
	token := uuid.NewString()
	require.NoError(t, BlacklistToken(ctx, token, time.Minute))

	revoked, err := IsTokenBlacklisted(ctx, token)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsTokenBlacklisted(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestIdempotencyStore_Redis(t *testing.T) {
	store := NewIdempotencyStore(testRedisClient(t))
	ctx := context.Background()
	key := store.Key("orders", uuid.NewString())
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	ok, err := store.SetNX(ctx, key, "pending", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, key, "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, "done", time.Minute))
	val, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "done", val)

	require.NoError(t, store.Delete(ctx, key))
	_, found, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}
