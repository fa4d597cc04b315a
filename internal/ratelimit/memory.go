package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many Allow calls pass between full sweeps of idle clients.
const sweepEvery = 1024

type windowCounter struct {
	index      int64
	prev, curr int64
}

// roll moves c to window idx, carrying curr over when idx directly follows.
func (c *windowCounter) roll(idx int64) {
	switch c.index {
	case idx:
	case idx - 1:
		c.prev, c.curr = c.curr, 0
		c.index = idx
	default:
		c.prev, c.curr = 0, 0
		c.index = idx
	}
}

// MemoryLimiter is an in-process sliding-window counter. Idle clients are
// dropped during periodic sweeps piggybacked on Allow.
type MemoryLimiter struct {
	cfg      Config
	now      func() time.Time
	mu       sync.Mutex
	counters map[string]*windowCounter
	calls    int
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:      cfg,
		now:      time.Now,
		counters: make(map[string]*windowCounter),
	}
}

// Allow implements Limiter. It never returns an error.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	idx, elapsed := windowIndex(m.now(), m.cfg.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(idx)
	}

	c, ok := m.counters[key]
	if !ok {
		c = &windowCounter{index: idx}
		m.counters[key] = c
	}
	c.roll(idx)
	c.curr++

	return evaluate(m.cfg, c.prev, c.curr, elapsed), nil
}

// Clients returns how many clients are currently tracked.
func (m *MemoryLimiter) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

// sweep drops clients with no hits in the current or previous window.
func (m *MemoryLimiter) sweep(idx int64) {
	for key, c := range m.counters {
		if c.index < idx-1 {
			delete(m.counters, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
