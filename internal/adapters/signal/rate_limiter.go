package signal

import (
	"sync"
	"time"

	"github.com/dkeye/peerchess/internal/core"
)

// RateLimiter allows at most limit commands per viewer within any interval.
type RateLimiter struct {
	mu       sync.Mutex
	history  map[core.ViewerID][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[core.ViewerID][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(id core.ViewerID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[id]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}
	rl.history[id] = append(fresh, now)
	return true
}

// Forget drops the window of a disconnected viewer.
func (rl *RateLimiter) Forget(id core.ViewerID) {
	rl.mu.Lock()
	delete(rl.history, id)
	rl.mu.Unlock()
}
