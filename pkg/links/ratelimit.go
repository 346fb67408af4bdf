package links

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// RateLimiter keeps one token bucket per host.
type RateLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	fallback float64
}

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

// NewRateLimiter creates a limiter allowing reqPerSecond per unknown host.
func NewRateLimiter(reqPerSecond float64) *RateLimiter {
	if reqPerSecond <= 0 {
		reqPerSecond = 1
	}
	return &RateLimiter{buckets: make(map[string]*bucket), fallback: reqPerSecond}
}

// SetLimit overrides the rate for one host.
func (r *RateLimiter) SetLimit(host string, reqPerSecond float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[host] = newBucket(reqPerSecond)
}

func newBucket(rate float64) *bucket {
	capacity := rate
	if capacity < 1 {
		capacity = 1
	}
	return &bucket{tokens: capacity, capacity: capacity, rate: rate, last: time.Now()}
}

// take consumes a token if one is available and otherwise reports how long
// until one will be.
func (b *bucket) take() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	return time.Duration((1 - b.tokens) / b.rate * float64(time.Second)), false
}

// Wait blocks until the host has a free slot or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, host string) error {
	b := r.bucketFor(host)
	for {
		wait, ok := b.take()
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

// Allow takes a slot without blocking.
func (r *RateLimiter) Allow(host string) bool {
	_, ok := r.bucketFor(host).take()
	return ok
}

// WaitForURL waits on the URL's host. Unparsable URLs are not limited.
func (r *RateLimiter) WaitForURL(ctx context.Context, rawURL string) error {
	host := Host(rawURL)
	if host == "" {
		return nil
	}
	return r.Wait(ctx, host)
}

func (r *RateLimiter) bucketFor(host string) *bucket {
	r.mu.RLock()
	b, ok := r.buckets[host]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buckets[host]; ok {
		return b
	}
	b = newBucket(r.fallback)
	r.buckets[host] = b
	return b
}

// Host returns the lowercased host of rawURL without its port.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
