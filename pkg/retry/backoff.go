package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before the given retry attempt (1-based)
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Exponential doubles (by Multiplier) from Base up to Max, with optional jitter
type Exponential struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultExponential suits page navigation: 500ms, 1s, 2s ... capped at 10s
func DefaultExponential() Exponential {
	return Exponential{
		Base:       500 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	mult := e.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(e.Base) * math.Pow(mult, float64(attempt-1))
	if e.Max > 0 && d > float64(e.Max) {
		d = float64(e.Max)
	}
	if e.Jitter > 0 {
		j := d * e.Jitter
		d += rand.Float64()*2*j - j
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Constant waits the same delay between every attempt
type Constant time.Duration

func (c Constant) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(c)
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
