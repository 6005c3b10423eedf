// Package rest implements the HTTP request façade: guild-scoped rule
// operations, the audit-log fetch path, per-bucket rate limiting, and the
// mapping from HTTP status outcomes to the client's error taxonomy.
package rest

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate-limit response headers published by the remote service
const (
	headerRemaining  = "X-RateLimit-Remaining"
	headerResetAfter = "X-RateLimit-Reset-After"
	headerRetryAfter = "Retry-After"
)

// bucket tracks the rate-limit state of one endpoint category. The semaphore
// serializes in-flight requests within the bucket; requests against distinct
// buckets proceed concurrently. State updates come from response headers.
type bucket struct {
	sem     chan struct{}
	limiter *rate.Limiter

	mu        sync.Mutex
	remaining int
	resetAt   time.Time
}

func newBucket() *bucket {
	return &bucket{
		sem: make(chan struct{}, 1),
		// Pacing limiter smooths bursts within a bucket; header-driven
		// state remains the authoritative limit.
		limiter:   rate.NewLimiter(rate.Limit(50), 5),
		remaining: 1,
	}
}

// acquire claims the bucket for one request. It blocks while another request
// in the same bucket is in flight, waits out an exhausted window, and honors
// context cancellation at every stage. A cancelled caller releases the bucket
// without touching its counters, so concurrent callers are unaffected.
func (b *bucket) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	wait := time.Duration(0)
	if b.remaining <= 0 {
		wait = time.Until(b.resetAt)
	}
	b.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			b.release()
			return ctx.Err()
		}
	}

	if err := b.limiter.Wait(ctx); err != nil {
		b.release()
		return err
	}
	return nil
}

// release frees the bucket for the next request
func (b *bucket) release() {
	<-b.sem
}

// update records rate-limit state from response headers. Absent headers
// leave the current state untouched.
func (b *bucket) update(header http.Header) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v := header.Get(headerRemaining); v != "" {
		if remaining, err := strconv.Atoi(v); err == nil {
			b.remaining = remaining
		}
	}
	if v := header.Get(headerResetAfter); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil {
			b.resetAt = time.Now().Add(time.Duration(seconds * float64(time.Second)))
		}
	}
}

// rateLimiter owns all buckets, keyed by endpoint category. It is the single
// shared resource crossing the request paths; interior synchronization keeps
// concurrent access and cancellation consistent.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{buckets: make(map[string]*bucket)}
}

// bucket returns the bucket for a key, creating it on first use
func (rl *rateLimiter) bucket(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = newBucket()
		rl.buckets[key] = b
	}
	return b
}

// retryAfter extracts the server-mandated wait from a rate-limited response
func retryAfter(header http.Header) time.Duration {
	v := header.Get(headerRetryAfter)
	if v == "" {
		v = header.Get(headerResetAfter)
	}
	if v == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
