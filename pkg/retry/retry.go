// Package retry implements bounded retries with exponential backoff. It is
// used at startup to wait for the database to become reachable.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config defines retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Multiplier grows the delay after each failed attempt.
	Multiplier float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Func is a unit of retryable work.
type Func func(ctx context.Context) error

// ExceededError is returned when all attempts have failed.
type ExceededError struct {
	LastError error
	Attempts  int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.LastError)
}

func (e *ExceededError) Unwrap() error {
	return e.LastError
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx is done.
// Every error is considered retryable; callers needing finer policy should
// stop retrying by returning nil and carrying the error out of band.
func Do(ctx context.Context, cfg Config, fn Func) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 2.0
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return &ExceededError{LastError: lastErr, Attempts: cfg.MaxAttempts}
}

// WithAttempts runs fn with default backoff and the given attempt budget.
func WithAttempts(ctx context.Context, maxAttempts int, fn Func) error {
	cfg := DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	return Do(ctx, cfg, fn)
}
