package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether an action may proceed now, consuming a slot if so
	Allow() bool
	// Wait blocks until an action may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial state
	Reset()
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// TokenBucket refills to full capacity once per refill period
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	now          Clock
	mu           sync.Mutex
}

// NewTokenBucket creates a token bucket driven by the wall clock
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return NewTokenBucketWithClock(capacity, refillPeriod, time.Now)
}

// NewTokenBucketWithClock creates a token bucket driven by clock
func NewTokenBucketWithClock(capacity int, refillPeriod time.Duration, clock Clock) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if clock == nil {
		clock = time.Now
	}
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   clock(),
		now:          clock,
	}
}

// PerSecond caps actions at n per second
func PerSecond(n int, clock Clock) *TokenBucket {
	return NewTokenBucketWithClock(n, time.Second, clock)
}

// Allow checks if an action can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		until := tb.refillPeriod - tb.now().Sub(tb.lastRefill)
		tb.mu.Unlock()
		if until <= 0 {
			until = 10 * time.Millisecond
		}

		timer := time.NewTimer(until)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// Remaining returns the tokens left in the current period
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// SlidingWindow allows at most maxEvents within any window
type SlidingWindow struct {
	window    time.Duration
	maxEvents int
	events    []time.Time
	now       Clock
	mu        sync.Mutex
}

// NewSlidingWindow creates a sliding window limiter driven by the wall clock
func NewSlidingWindow(maxEvents int, window time.Duration) *SlidingWindow {
	return NewSlidingWindowWithClock(maxEvents, window, time.Now)
}

// NewSlidingWindowWithClock creates a sliding window limiter driven by clock
func NewSlidingWindowWithClock(maxEvents int, window time.Duration, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = time.Now
	}
	return &SlidingWindow{
		window:    window,
		maxEvents: maxEvents,
		events:    make([]time.Time, 0, maxEvents),
		now:       clock,
	}
}

// Allow checks if an event can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.evict(now)
	if len(sw.events) < sw.maxEvents {
		sw.events = append(sw.events, now)
		return true
	}
	return false
}

// Wait blocks until the oldest event leaves the window
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		var until time.Duration
		if len(sw.events) > 0 {
			until = sw.events[0].Add(sw.window).Sub(sw.now())
		}
		sw.mu.Unlock()
		if until <= 0 {
			until = 10 * time.Millisecond
		}

		timer := time.NewTimer(until)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Reset forgets every recorded event
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.events = sw.events[:0]
}

func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.events) && !sw.events[i].After(cutoff) {
		i++
	}
	sw.events = sw.events[i:]
}
