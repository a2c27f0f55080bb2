package api

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window limiter shared by all callers of one
// route: at most limit requests inside any trailing window.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   []time.Time
	now    func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// allow records one request and reports whether it fits the window
func (l *rateLimiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	horizon := now.Add(-l.window)

	keep := l.hits[:0]
	for _, t := range l.hits {
		if t.After(horizon) {
			keep = append(keep, t)
		}
	}
	l.hits = keep

	if len(l.hits) >= l.limit {
		return false
	}
	l.hits = append(l.hits, now)
	return true
}
