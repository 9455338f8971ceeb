package moderation

import (
	"sync"
	"time"
)

// sweepEvery bounds how often the limiter walks the whole map to evict
// users whose windows have gone empty.
const sweepEvery = 512

// RateLimiter tracks per-user message timestamps inside a sliding window.
// State is process-local and rebuilt from nothing on restart; it is not
// authoritative and needs no durability.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	events map[int64][]time.Time
	calls  int

	// now is swappable so tests can drive the clock.
	now func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		events: make(map[int64][]time.Time),
		now:    time.Now,
	}
}

// Record registers one message from the user and reports whether the user
// has now exceeded the window limit. Timestamps older than the window are
// pruned on every call, and stale users are evicted periodically so the map
// stays bounded by currently-chatting users.
func (r *RateLimiter) Record(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	kept := r.events[userID][:0]
	for _, ts := range r.events[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	r.events[userID] = kept

	r.calls++
	if r.calls%sweepEvery == 0 {
		r.sweep(cutoff)
	}

	return len(kept) > r.max
}

func (r *RateLimiter) sweep(cutoff time.Time) {
	for id, stamps := range r.events {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(r.events, id)
		}
	}
}
