package workerclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
)

// RetryConfig holds exponential-backoff tuning for outbound HTTP calls to
// the Worker API.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterFraction float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		BackoffFactor:  2.0,
		JitterFraction: 0.1,
	}
}

// RetryableError marks an error as safe to retry, carrying a human reason.
type RetryableError struct {
	Err       error
	Retryable bool
	Reason    string
}

func (e *RetryableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v (reason: %s, retryable: %v)", e.Err, e.Reason, e.Retryable)
	}
	return fmt.Sprintf("%v (retryable: %v)", e.Err, e.Retryable)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an error should trigger another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return isTransientError(err)
}

// isTransientError classifies network-level failures talking to the Worker
// API as retryable; everything else (including a well-formed 4xx response)
// is not.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || !errors.Is(err, http.ErrHandlerTimeout)
	}

	return false
}

// RetryWithBackoffCounter executes fn with exponential backoff, passing the
// zero-based attempt number to each invocation.
func RetryWithBackoffCounter(ctx context.Context, config *RetryConfig, operation string, fn func(attempt int) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt+1, err)
		}

		err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				logging.Log.WithField("operation", operation).WithField("attempt", attempt+1).
					Info("operation succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			logging.Log.WithField("operation", operation).WithField("attempt", attempt+1).WithError(err).
				Warn("non-retryable error encountered")
			return err
		}
		if attempt >= config.MaxRetries {
			logging.Log.WithField("operation", operation).WithField("attempts", attempt+1).WithError(err).
				Error("max retries exceeded")
			return fmt.Errorf("operation %s failed after %d attempts: %w", operation, attempt+1, err)
		}

		if attempt > 0 {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}
		jitteredDelay := addJitter(delay, config.JitterFraction)

		logging.Log.WithField("operation", operation).WithField("attempt", attempt+1).
			WithField("delay", jitteredDelay).WithError(err).Info("retrying operation after delay")

		select {
		case <-time.After(jitteredDelay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
		}
	}

	return lastErr
}

// RetryWithBackoff executes fn with exponential backoff.
func RetryWithBackoff(ctx context.Context, config *RetryConfig, operation string, fn func() error) error {
	return RetryWithBackoffCounter(ctx, config, operation, func(_ int) error {
		return fn()
	})
}

func addJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	if fraction > 1 {
		fraction = 1
	}
	jitter := time.Duration(rand.Float64() * float64(d) * fraction)
	return d + jitter
}
