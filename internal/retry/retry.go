// Package retry provides a bounded retry loop with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/campusnews/internal/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 200ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 2s)

	// Retryable classifies errors. Nil means every error is retryable.
	Retryable func(error) bool

	// Logger receives attempt diagnostics. Nil disables logging.
	Logger *logger.Logger
}

// Do calls fn until it succeeds, returns a non-retryable error, attempts
// run out or ctx is done. Context cancellation is checked between attempts.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	// Apply defaults
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return true }
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				log.DebugCtx(ctx, "retry succeeded", logger.Field{Key: "attempt", Value: attempt + 1})
			}
			return nil
		}

		lastErr = err

		if !cfg.Retryable(err) {
			return err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		log.DebugCtx(ctx, "retryable error, backing off",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_attempts", Value: cfg.MaxAttempts},
			logger.Field{Key: "backoff", Value: backoff.String()},
			logger.Field{Key: "error", Value: err.Error()})

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// On returns a predicate matching any of targets via errors.Is.
func On(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// calculateBackoff calculates the backoff duration for a given attempt.
// Uses exponential backoff: 2^attempt * initial, capped at limit.
func calculateBackoff(attempt int, initial, limit time.Duration) time.Duration {
	if attempt >= 30 {
		return limit
	}
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > limit || backoff <= 0 {
		return limit
	}
	return backoff
}
