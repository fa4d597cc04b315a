package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces the per-client window counters.
const redisKeyPrefix = "ratelimit:"

// RedisLimiter keeps one counter per client and fixed window, so every API
// instance shares the same limit.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg, now: time.Now}
}

// windowKey names the counter for key in window idx.
func windowKey(key string, idx int64) string {
	return fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, idx)
}

// Allow implements Limiter. The increment, expiry and previous-window read
// run in a single MULTI/EXEC.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	idx, elapsed := windowIndex(l.now(), l.cfg.Window)
	currKey := windowKey(key, idx)

	pipe := l.client.TxPipeline()
	currCmd := pipe.Incr(ctx, currKey)
	pipe.PExpire(ctx, currKey, 2*l.cfg.Window)
	prevCmd := pipe.Get(ctx, windowKey(key, idx-1))

	// A missing previous window surfaces as redis.Nil.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Result{}, fmt.Errorf("rate limit transaction: %w", err)
	}

	curr, err := currCmd.Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit count: %w", err)
	}
	prev, err := prevCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Result{}, fmt.Errorf("rate limit previous window: %w", err)
	}

	return evaluate(l.cfg, prev, curr, elapsed), nil
}

var _ Limiter = (*RedisLimiter)(nil)
