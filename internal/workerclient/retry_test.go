package workerclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		BackoffFactor:  2.0,
		JitterFraction: 0,
	}
}

func TestRetryWithBackoff_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetryConfig(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := RetryWithBackoffCounter(context.Background(), fastRetryConfig(), "op", func(attempt int) error {
		calls++
		if attempt < 2 {
			return &RetryableError{Err: errors.New("transient"), Retryable: true}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("permanent")
	err := RetryWithBackoff(context.Background(), fastRetryConfig(), "op", func() error {
		calls++
		return &RetryableError{Err: sentinel, Retryable: false}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetryWithBackoff_ExhaustsMaxRetries(t *testing.T) {
	calls := 0
	cfg := fastRetryConfig()
	err := RetryWithBackoff(context.Background(), cfg, "op", func() error {
		calls++
		return &RetryableError{Err: errors.New("always fails"), Retryable: true}
	})
	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, calls)
}

func TestRetryWithBackoff_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{MaxRetries: 5, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := RetryWithBackoff(ctx, cfg, "op", func() error {
		calls++
		return &RetryableError{Err: errors.New("transient"), Retryable: true}
	})
	require.Error(t, err)
	assert.Less(t, calls, cfg.MaxRetries+1)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(&RetryableError{Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain error")))
}
