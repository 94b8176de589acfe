package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/groundwork/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) Backoff {
	return Backoff{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetry_ImmediateSuccess(t *testing.T) {
	attempts := 0
	err := fastBackoff(3).Retry(context.Background(), nil, func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_EventualSuccess(t *testing.T) {
	attempts := 0
	err := fastBackoff(5).Retry(context.Background(), nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := fastBackoff(3).Retry(context.Background(), nil, func(context.Context) error {
		attempts++
		return expectedErr
	})
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_PermanentError(t *testing.T) {
	attempts := 0
	err := fastBackoff(5).Retry(context.Background(), nil, func(context.Context) error {
		attempts++
		return core.ErrEmptyContent
	})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
	assert.Equal(t, 1, attempts, "permanent errors are not retried")
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Backoff{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond}.Retry(ctx, nil, func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetry_InvalidMaxAttempts(t *testing.T) {
	err := Backoff{}.Retry(context.Background(), nil, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{MaxAttempts: 6, BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.delay(1))
	assert.Equal(t, 200*time.Millisecond, b.delay(2))
	assert.Equal(t, 400*time.Millisecond, b.delay(3))
	assert.Equal(t, 500*time.Millisecond, b.delay(4))
	assert.Equal(t, 500*time.Millisecond, b.delay(10))

	uncapped := Backoff{BaseDelay: time.Second}
	assert.Equal(t, 8*time.Second, uncapped.delay(4))
}
