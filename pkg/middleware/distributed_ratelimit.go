package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DistributedRateLimiter implements a sliding window in Redis sorted sets,
// so limits are shared across host instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
	now    func() time.Time
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "hangar:ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
		now:    time.Now,
	}
}

func (rl *DistributedRateLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// Allow trims the window, records this request and counts, in one MULTI block.
// A rejected request is removed again so only admitted requests occupy the window.
// On Redis errors the decision is Allowed along with the error, except when the
// request was already denied and only the cleanup failed.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := rl.key(key)
	now := rl.now()
	cutoff := now.Add(-rl.config.WindowDuration).UnixMicro()
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()

	pipe := rl.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, redisKey, &redis.Z{Score: float64(now.UnixMicro()), Member: member})
	card := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, rl.config.WindowDuration)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: rl.config.RequestsPerWindow}, fmt.Errorf("redis error: %w", err)
	}

	count := int(card.Val())
	d := Decision{
		Allowed:   count <= rl.config.RequestsPerWindow,
		Limit:     rl.config.RequestsPerWindow,
		Remaining: rl.config.RequestsPerWindow - count,
		Reset:     now.Add(rl.config.WindowDuration),
	}
	if first := oldest.Val(); len(first) > 0 {
		d.Reset = time.UnixMicro(int64(first[0].Score)).Add(rl.config.WindowDuration)
	}

	if !d.Allowed {
		d.Remaining = 0
		if err := rl.redis.ZRem(ctx, redisKey, member).Err(); err != nil {
			return d, fmt.Errorf("redis error: %w", err)
		}
	}

	return d, nil
}

// Count returns the number of requests currently in the window for key
func (rl *DistributedRateLimiter) Count(ctx context.Context, key string) (int, error) {
	cutoff := rl.now().Add(-rl.config.WindowDuration).UnixMicro()
	n, err := rl.redis.ZCount(ctx, rl.key(key), "("+strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Reset clears the rate limit for a key (for testing or admin purposes)
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.key(key)).Err()
}

// HealthCheck verifies Redis connectivity for rate limiting
func (rl *DistributedRateLimiter) HealthCheck(ctx context.Context) error {
	return rl.redis.Ping(ctx).Err()
}
