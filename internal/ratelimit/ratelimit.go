package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces out requests to the same news site. One limiter is
// shared by every region in a run so that two states linking the same
// outlet do not double its load.
type HostLimiter struct {
	mu       sync.Mutex
	every    time.Duration
	burst    int
	limiters map[string]*rate.Limiter
	waits    int
	waited   time.Duration
}

// NewHostLimiter allows requestsPerSecond per host with the given burst.
// A non-positive rate disables limiting.
func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	hl := &HostLimiter{limiters: make(map[string]*rate.Limiter)}
	if requestsPerSecond > 0 {
		hl.every = time.Duration(float64(time.Second) / requestsPerSecond)
		if hl.every <= 0 {
			hl.every = time.Millisecond
		}
	}
	if burst <= 0 {
		burst = 1
	}
	hl.burst = burst
	return hl
}

// Wait blocks until a request to host may go out or ctx is done.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	if hl == nil || hl.every <= 0 || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	hl.mu.Lock()
	limiter, ok := hl.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(hl.every), hl.burst)
		hl.limiters[host] = limiter
	}
	hl.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	hl.mu.Lock()
	hl.waits++
	hl.waited += time.Since(start)
	hl.mu.Unlock()
	return nil
}

// GetStats returns limiter statistics for the run summary log.
func (hl *HostLimiter) GetStats() map[string]interface{} {
	if hl == nil {
		return map[string]interface{}{}
	}
	hl.mu.Lock()
	defer hl.mu.Unlock()

	return map[string]interface{}{
		"hosts":       len(hl.limiters),
		"waits":       hl.waits,
		"waited_ms":   hl.waited.Milliseconds(),
		"interval_ms": hl.every.Milliseconds(),
	}
}
