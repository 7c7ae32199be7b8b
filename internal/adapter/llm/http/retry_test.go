package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, DefaultRetryConfig())

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesRetryableError(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2.0}

	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewServiceUnavailableError("api", "upstream hiccup")
		}
		return nil
	}, cfg)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2.0}

	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return NewAuthenticationError("api", "bad key")
	}, cfg)

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2.0}

	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return NewRateLimitError("api", "slow down")
	}, cfg)

	assert.Error(t, err)
	assert.Equal(t, 2, calls) // initial attempt + one retry

	var httpErr *Error
	assert.True(t, errors.As(err, &httpErr))
	assert.Equal(t, ErrTypeRateLimit, httpErr.Type)
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		return NewTimeoutError("api", "timed out")
	}, DefaultRetryConfig())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(errors.New("plain error")))
	assert.True(t, ShouldRetry(NewTimeoutError("ollama", "deadline")))
	assert.False(t, ShouldRetry(NewInvalidRequestError("api", "bad body")))
}

func TestExponentialBackoff_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 4 * time.Second, Multiplier: 2.0}
	for attempt := 0; attempt < 10; attempt++ {
		backoff := ExponentialBackoff(attempt, cfg)
		assert.LessOrEqual(t, backoff, 4*time.Second)
		assert.GreaterOrEqual(t, backoff, time.Duration(0))
	}
}

func TestRedactAPIKey(t *testing.T) {
	logger := NewDefaultLogger(LogLevelInfo, LogFormatHuman, true)
	assert.Equal(t, "[REDACTED-3456]", logger.RedactAPIKey("sk-123456"))
	assert.Equal(t, "[REDACTED]", logger.RedactAPIKey("abc"))

	open := NewDefaultLogger(LogLevelInfo, LogFormatHuman, false)
	assert.Equal(t, "sk-123456", open.RedactAPIKey("sk-123456"))
}

func TestErrorIs(t *testing.T) {
	err := NewRateLimitError("api", "429")
	assert.True(t, errors.Is(err, &Error{Type: ErrTypeRateLimit}))
	assert.False(t, errors.Is(err, &Error{Type: ErrTypeTimeout}))
}
