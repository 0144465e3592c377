package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	cleanupEvery = 5 * time.Minute
	staleAfter   = 10 * time.Minute
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryBackend is a per-key token bucket held in process memory. A key may
// burst up to limit requests and earns one token back per full window, so no
// rolling window ever admits more than limit requests.
type MemoryBackend struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	now      func() time.Time
}

// NewMemoryBackend starts a backend whose stale keys are swept until ctx ends.
func NewMemoryBackend(ctx context.Context) *MemoryBackend {
	b := &MemoryBackend{
		limiters: make(map[string]*keyLimiter),
		now:      time.Now,
	}
	go b.cleanup(ctx)
	return b
}

func (b *MemoryBackend) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.limiters[key]
	if !ok {
		v = &keyLimiter{limiter: rate.NewLimiter(rate.Every(window), limit)}
		b.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

func (b *MemoryBackend) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

func (b *MemoryBackend) sweep() {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.limiters {
		if now.Sub(v.lastSeen) > staleAfter {
			delete(b.limiters, k)
		}
	}
}
