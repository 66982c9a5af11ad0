package retry

import (
	"context"
	"errors"
	"fmt"

	errs "linkstash/pkg/errors"
	"linkstash/pkg/logger"
)

// Policy describes how an operation is retried
type Policy struct {
	// Attempts is the total number of tries, including the first
	Attempts int
	Backoff  Backoff
	// RetryIf decides whether an error is worth another attempt
	RetryIf func(error) bool
	Logger  logger.Logger
}

// DefaultPolicy returns three attempts with exponential backoff
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Backoff:  DefaultExponential(),
		RetryIf:  Retryable,
		Logger:   logger.NewNopLogger(),
	}
}

// Retryable retries typed errors marked retryable and never retries
// cancellation. Untyped errors are retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}
	return true
}

// Do runs op until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is done.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = DefaultExponential()
	}
	if p.RetryIf == nil {
		p.RetryIf = Retryable
	}
	if p.Logger == nil {
		p.Logger = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				p.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !p.RetryIf(err) || attempt == p.Attempts {
			break
		}

		delay := p.Backoff.Delay(attempt)
		p.Logger.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": p.Attempts,
			"delay_ms":     delay.Milliseconds(),
			"error":        err.Error(),
		})
		if err := Sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
	return lastErr
}

// DoValue is Do for operations that produce a value
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
