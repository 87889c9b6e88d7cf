package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
	denied  bool
}

// MemoryStore keeps windows in a mutex-guarded map. Expired windows are
// dropped by a background sweep bound to the constructor's context.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore starts the sweep goroutine when every > 0; it stops when ctx
// is cancelled.
func NewMemoryStore(ctx context.Context, every time.Duration) *MemoryStore {
	s := &MemoryStore{windows: make(map[string]*window)}
	if every > 0 {
		go s.sweepLoop(ctx, every)
	}
	return s
}

func (s *MemoryStore) Take(_ context.Context, key string, limit int, win time.Duration, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(win)}
		s.windows[key] = w
		return Decision{Allowed: true, Count: 1, Limit: limit, ResetAt: w.resetAt}, nil
	}
	if w.count < limit {
		w.count++
		return Decision{Allowed: true, Count: w.count, Limit: limit, ResetAt: w.resetAt}, nil
	}

	first := !w.denied
	w.denied = true
	return Decision{Count: w.count, Limit: limit, ResetAt: w.resetAt, FirstDenied: first}, nil
}

// Sweep removes windows that ended before now and returns how many it dropped
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, k)
			n++
		}
	}
	return n
}

// Len reports how many keys currently hold a window
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) sweepLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
