package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, requests int, window time.Duration) (*DistributedRateLimiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{RequestsPerWindow: requests, WindowDuration: window}, "test")
	limiter.now = clock.Now
	return limiter, mr, clock
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	limiter, mr, _ := newRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	count, err := limiter.Count(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "rejected requests are not kept in the window")

	assert.True(t, mr.Exists("test:ip:1.2.3.4"))
	assert.Greater(t, mr.TTL("test:ip:1.2.3.4"), time.Duration(0))
}

func TestDistributedRateLimiter_WindowSlides(t *testing.T) {
	limiter, _, clock := newRedisLimiter(t, 2, time.Minute)
	ctx := context.Background()
	start := clock.Now()

	limiter.Allow(ctx, "k")
	clock.Advance(30 * time.Second)
	limiter.Allow(ctx, "k")

	d, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, start.Add(time.Minute).Unix(), d.Reset.Unix())

	clock.Advance(31 * time.Second)
	d, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestDistributedRateLimiter_Reset(t *testing.T) {
	limiter, _, _ := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	limiter.Allow(ctx, "k")
	d, _ := limiter.Allow(ctx, "k")
	require.False(t, d.Allowed)

	require.NoError(t, limiter.Reset(ctx, "k"))
	d, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestDistributedRateLimiter_FailOpen(t *testing.T) {
	limiter, mr, _ := newRedisLimiter(t, 1, time.Minute)
	mr.Close()

	d, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
	assert.Error(t, limiter.HealthCheck(context.Background()))
}
