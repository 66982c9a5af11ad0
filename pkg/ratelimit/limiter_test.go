package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tb := NewTokenBucketWithClock(3, time.Second, clock.now)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")
	assert.Equal(t, 0, tb.Remaining())

	clock.advance(999 * time.Millisecond)
	assert.False(t, tb.Allow(), "refill must wait a full period")

	clock.advance(time.Millisecond)
	assert.True(t, tb.Allow())

	tb.Reset()
	assert.Equal(t, 3, tb.Remaining())
}

func TestTokenBucketMinimumCapacity(t *testing.T) {
	tb := NewTokenBucket(0, time.Hour)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	sw := NewSlidingWindowWithClock(2, time.Second, clock.now)

	assert.True(t, sw.Allow())
	clock.advance(500 * time.Millisecond)
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	// first event leaves the window
	clock.advance(500 * time.Millisecond)
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	sw.Reset()
	assert.True(t, sw.Allow())
}

func TestLimiterInterface(t *testing.T) {
	var _ Limiter = NewTokenBucket(1, time.Second)
	var _ Limiter = NewSlidingWindow(1, time.Second)
}
