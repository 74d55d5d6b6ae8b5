// Package ratelimit throttles outbound exchange requests. Exchanges meter
// endpoints in weight units against named buckets (request count, order
// count, raw IP limits), so the limiter keeps one token bucket per name
// and debits the request's weight before dispatch.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter meters requests against a default bucket and any number of
// named buckets. Unknown bucket names fall back to the default limit.
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[string]*rate.Limiter
	requests int
	period   time.Duration
	metrics  Metrics
}

// Metrics tracks limiter usage counters.
type Metrics struct {
	waits   atomic.Int64
	denials atomic.Int64
}

// New creates a Limiter allowing requests weight units per period on the
// default bucket.
func New(requests int, period time.Duration) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*rate.Limiter),
		requests: requests,
		period:   period,
	}
	l.buckets[""] = newBucket(requests, period)
	return l
}

func newBucket(requests int, period time.Duration) *rate.Limiter {
	rps := float64(requests) / period.Seconds()
	return rate.NewLimiter(rate.Limit(rps), requests)
}

// Configure sets the limit for a named bucket, creating it if needed.
func (l *Limiter) Configure(bucket string, requests int, period time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[bucket] = newBucket(requests, period)
}

// Wait blocks until the bucket grants weight units or the context is
// cancelled. Weights below 1 are treated as 1.
func (l *Limiter) Wait(ctx context.Context, bucket string, weight int) error {
	if weight < 1 {
		weight = 1
	}
	l.metrics.waits.Add(1)
	if err := l.get(bucket).WaitN(ctx, weight); err != nil {
		l.metrics.denials.Add(1)
		return err
	}
	return nil
}

// Allow reports whether the bucket can grant weight units immediately.
func (l *Limiter) Allow(bucket string, weight int) bool {
	if weight < 1 {
		weight = 1
	}
	l.metrics.waits.Add(1)
	if !l.get(bucket).AllowN(time.Now(), weight) {
		l.metrics.denials.Add(1)
		return false
	}
	return true
}

func (l *Limiter) get(bucket string) *rate.Limiter {
	l.mu.RLock()
	if b, ok := l.buckets[bucket]; ok {
		l.mu.RUnlock()
		return b
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[bucket]; ok {
		return b
	}
	b := newBucket(l.requests, l.period)
	l.buckets[bucket] = b
	return b
}

// Snapshot is a point-in-time capture of limiter counters.
type Snapshot struct {
	Waits   int64
	Denials int64
	Buckets int
}

// Snapshot returns the current counters.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Waits:   l.metrics.waits.Load(),
		Denials: l.metrics.denials.Load(),
		Buckets: len(l.buckets),
	}
}
