package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochopp/internal/pkg/cache"
)

func newTestClient(t *testing.T) (*cache.RedisClient, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	return cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestRedisClient_GetSetDelete(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "brand-summary:Heineken")
	assert.Equal(t, cache.ErrCacheMiss, err)

	require.NoError(t, c.Set(ctx, "brand-summary:Heineken", `{"active_kegs":2}`, time.Minute))
	val, err := c.Get(ctx, "brand-summary:Heineken")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active_kegs":2}`, val)

	require.NoError(t, c.Delete(ctx, "brand-summary:Heineken"))
	_, err = c.Get(ctx, "brand-summary:Heineken")
	assert.Equal(t, cache.ErrCacheMiss, err)
	assert.NoError(t, c.Delete(ctx))
}

func TestRedisClient_Counter(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetInt(ctx, "rate-limit:10.0.0.1")
	assert.Equal(t, cache.ErrCacheMiss, err)

	require.NoError(t, c.Set(ctx, "rate-limit:10.0.0.1", 1, time.Minute))
	n, err := c.Incr(ctx, "rate-limit:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := c.GetInt(ctx, "rate-limit:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	mr.FastForward(2 * time.Minute)
	_, err = c.GetInt(ctx, "rate-limit:10.0.0.1")
	assert.Equal(t, cache.ErrCacheMiss, err)
}
