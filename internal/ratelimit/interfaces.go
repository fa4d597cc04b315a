// Package ratelimit caps requests per client over a rolling window.
//
// Both stores use a sliding-window counter: one count for the current fixed
// window and one for the previous, with the previous count weighted by how
// much of it still overlaps the rolling window. State per client is two
// integers regardless of traffic.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result describes the outcome of one counted request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is how long until a new request would be admitted, assuming
	// no further hits. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter counts a request for key and reports whether it is within the limit.
// Every call is counted, including rejected ones.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config holds the window and request cap shared by every store.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// windowIndex returns the fixed window containing now and how far into it
// now is. Windows are aligned to the Unix epoch.
func windowIndex(now time.Time, window time.Duration) (int64, time.Duration) {
	size := window.Milliseconds()
	if size <= 0 {
		size = 1
	}
	ms := now.UnixMilli()
	idx := ms / size
	return idx, time.Duration(ms-idx*size) * time.Millisecond
}

// rate is the weighted request count over the rolling window.
func rate(cfg Config, prev, curr int64, elapsed time.Duration) float64 {
	weight := float64(cfg.Window-elapsed) / float64(cfg.Window)
	return float64(prev)*weight + float64(curr)
}

// evaluate builds the Result for a client whose counts already include the
// current request.
func evaluate(cfg Config, prev, curr int64, elapsed time.Duration) Result {
	r := rate(cfg, prev, curr, elapsed)
	res := Result{
		Allowed:   r <= float64(cfg.MaxRequests),
		Limit:     cfg.MaxRequests,
		Remaining: cfg.MaxRequests - int(math.Ceil(r)),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = retryAfter(cfg, prev, curr, elapsed)
	}
	return res
}

// retryAfter solves for the earliest moment one more request fits.
func retryAfter(cfg Config, prev, curr int64, elapsed time.Duration) time.Duration {
	w := float64(cfg.Window)

	// Room left in this window once prev has decayed enough.
	if room := float64(int64(cfg.MaxRequests) - curr - 1); room >= 0 && prev > 0 {
		at := time.Duration(w - room*w/float64(prev))
		if at > elapsed {
			return at - elapsed
		}
		return 0
	}

	// Otherwise wait for the next window, where curr becomes the decaying count.
	toNext := cfg.Window - elapsed
	if curr <= 0 {
		return toNext
	}
	at := w * (1 - float64(cfg.MaxRequests-1)/float64(curr))
	if at < 0 {
		at = 0
	}
	return toNext + time.Duration(at)
}
