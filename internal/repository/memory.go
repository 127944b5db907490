package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter keeps counters in process. Used when Redis is not configured
// or unreachable; limits are then per instance.
type MemoryRateLimiter struct {
	entries sync.Map
	now     func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{now: time.Now}
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryRateLimiter) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.entries.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || !now.Before(entry.expiresAt) {
		entry.count = 0
		entry.expiresAt = now.Add(window)
	}
	entry.count++

	return entry.count <= limit, nil
}

// Sweep drops windows that have closed.
func (r *MemoryRateLimiter) Sweep() int {
	now := r.now()
	removed := 0
	r.entries.Range(func(key, val any) bool {
		entry := val.(*rateLimitEntry)
		entry.mu.Lock()
		expired := !now.Before(entry.expiresAt)
		entry.mu.Unlock()
		if expired {
			r.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
