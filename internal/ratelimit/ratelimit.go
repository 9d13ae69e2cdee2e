// Package ratelimit implements a token-bucket limiter used to gate both
// inbound websocket message processing and outbound RPC calls: a
// mutex-guarded float counter, lazily advanced on each acquire/try-acquire
// call rather than a background ticker.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a token bucket with a fixed burst capacity and refill rate.
type Bucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	refill   float64 // tokens per second
	last     time.Time

	now func() time.Time
}

// New creates a Bucket with the given refill rate (tokens/second) and burst
// capacity. The bucket starts full.
func New(ratePerSecond float64, capacity int) *Bucket {
	if capacity <= 0 {
		capacity = 1
	}
	now := time.Now
	return &Bucket{
		tokens:   float64(capacity),
		capacity: float64(capacity),
		refill:   ratePerSecond,
		last:     now(),
		now:      now,
	}
}

func (b *Bucket) advance() {
	n := b.now()
	elapsed := n.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refill
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = n
}

// TryAcquire attempts to take n tokens without blocking. Returns false
// immediately if insufficient tokens are available. This is the path the
// websocket message throttle uses (§4.4 "Throttle") — refusal means drop.
func (b *Bucket) TryAcquire(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	need := float64(n)
	if b.tokens < need {
		return false
	}
	b.tokens -= need
	return true
}

// Acquire blocks until n tokens are available or ctx is cancelled. This is
// the path the RPC client uses — it blocks up to the caller's deadline
// rather than dropping the call.
func (b *Bucket) Acquire(ctx context.Context, n int) error {
	for {
		if b.TryAcquire(n) {
			return nil
		}
		wait := b.waitFor(n)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (b *Bucket) waitFor(n int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	deficit := float64(n) - b.tokens
	if deficit <= 0 {
		return time.Millisecond
	}
	if b.refill <= 0 {
		return 50 * time.Millisecond
	}
	secs := deficit / b.refill
	if secs < 0.001 {
		secs = 0.001
	}
	return time.Duration(secs * float64(time.Second))
}
