package catalog

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window request budget against the
// upstream catalog API. Acquire blocks until a slot frees or the context
// is cancelled; a cancelled wait consumes no slot.
type RateLimiter struct {
	mu      sync.Mutex
	budget  int
	window  time.Duration
	history []time.Time
	now     func() time.Time
}

func NewRateLimiter(budget int, window time.Duration) *RateLimiter {
	if budget <= 0 {
		budget = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		budget: budget,
		window: window,
		now:    time.Now,
	}
}

func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RateLimiter) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.history[:0]
	for _, t := range l.history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.history = kept

	if len(l.history) < l.budget {
		l.history = append(l.history, now)
		return 0, true
	}
	// Oldest entry leaving the window frees the next slot.
	return l.history[0].Sub(cutoff), false
}
