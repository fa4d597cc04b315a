package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestMemoryLimiter starts the clock on a minute boundary.
func newTestMemoryLimiter(max int, window time.Duration) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(Config{Window: window, MaxRequests: max})
	l.now = clock.now
	return l, clock
}

func TestMemoryLimiter_BlocksAfterLimit(t *testing.T) {
	l, _ := newTestMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	// Four hits must decay to two before a third fits: 60s to the next
	// window plus half of it.
	assert.Equal(t, 90*time.Second, res.RetryAfter)
}

func TestMemoryLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, _ := l.Allow(ctx, "a")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "a")
	assert.False(t, res.Allowed)

	res, _ = l.Allow(ctx, "b")
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_WindowRolls(t *testing.T) {
	l, clock := newTestMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "c")
	clock.advance(30 * time.Second)
	l.Allow(ctx, "c")

	res, _ := l.Allow(ctx, "c")
	assert.False(t, res.Allowed)
	assert.Equal(t, 70*time.Second, res.RetryAfter)

	// Early in the next window the previous three hits still weigh almost fully.
	clock.advance(31 * time.Second)
	res, _ = l.Allow(ctx, "c")
	assert.False(t, res.Allowed)

	clock.advance(2 * time.Minute)
	res, _ = l.Allow(ctx, "c")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestMemoryLimiter_PreviousWindowDecays(t *testing.T) {
	l, clock := newTestMemoryLimiter(2, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "d")
	l.Allow(ctx, "d")

	// 45s into the next window a quarter of the old hits remain: 0.5 + 1.
	clock.advance(time.Minute + 45*time.Second)
	res, _ := l.Allow(ctx, "d")
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, _ = l.Allow(ctx, "d")
	assert.False(t, res.Allowed)
	assert.Equal(t, 15*time.Second+30*time.Second, res.RetryAfter)
}

func TestMemoryLimiter_StateStaysBounded(t *testing.T) {
	l, _ := newTestMemoryLimiter(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10_000; i++ {
		l.Allow(ctx, "flood")
	}

	require.Equal(t, 1, l.Clients())
	c := l.counters["flood"]
	assert.Equal(t, int64(10_000), c.curr)
	assert.Zero(t, c.prev)
}

func TestMemoryLimiter_SweepDropsIdleClients(t *testing.T) {
	l, clock := newTestMemoryLimiter(10, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "idle")
	clock.advance(2 * time.Minute)
	for i := 1; i < sweepEvery; i++ {
		l.Allow(ctx, "busy")
	}

	assert.Equal(t, 1, l.Clients())
}

func TestWindowIndex(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 15, 20, 0, time.UTC)

	idx, elapsed := windowIndex(now, 15*time.Minute)
	assert.Equal(t, 20*time.Second, elapsed)

	next, _ := windowIndex(now.Add(15*time.Minute), 15*time.Minute)
	assert.Equal(t, idx+1, next)
}

func TestRedisLimiter_UnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, Config{Window: time.Minute, MaxRequests: 5})
	_, err := l.Allow(context.Background(), "203.0.113.7")
	assert.Error(t, err)
}

func TestWindowKey(t *testing.T) {
	assert.Equal(t, "ratelimit:203.0.113.7:42", windowKey("203.0.113.7", 42))
}
