package extract

import (
	"context"
	"fmt"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy bounds how often and how fast an operation is retried.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// AttemptFunc performs one attempt. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) error

// Retry runs fn until it succeeds, fails terminally, or the policy's attempts
// are used up. It returns the number of attempts made and the last error.
func Retry(ctx context.Context, p Policy, fn AttemptFunc) (int, error) {
	return retryWith(ctx, p, fn, nil)
}

// retryWith is Retry with the delay timer replaceable. A nil timer uses the
// wall clock.
func retryWith(ctx context.Context, p Policy, fn AttemptFunc, timer retrygo.Timer) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	opts := []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(uint(maxAttempts)),
		retrygo.Delay(p.Delay),
		retrygo.DelayType(retrygo.FixedDelay),
		retrygo.RetryIf(IsRetryable),
		retrygo.LastErrorOnly(true),
	}
	if timer != nil {
		opts = append(opts, retrygo.WithTimer(timer))
	}

	var (
		attempt int
		lastErr error
	)
	err := retrygo.Do(func() error {
		attempt++
		lastErr = fn(ctx, attempt)
		return lastErr
	}, opts...)

	switch {
	case err == nil:
		return attempt, nil
	case lastErr == nil:
		return 0, fmt.Errorf("retry aborted before the first attempt: %w", err)
	case !IsRetryable(lastErr):
		return attempt, lastErr
	case attempt < maxAttempts:
		return attempt, fmt.Errorf("retry aborted after %d attempt(s): %w", attempt, lastErr)
	default:
		return attempt, fmt.Errorf("all %d attempts failed: %w", attempt, lastErr)
	}
}
