package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func fast(n int) []Option {
	return []Option{
		WithMaxAttempts(n),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBusy)
		}
		return nil
	}, fast(5)...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedReturnsUnwrapped(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errBusy)
	}, fast(4)...)

	assert.Equal(t, 4, calls)
	assert.Same(t, errBusy, err)
	assert.False(t, IsRetryable(err))
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBusy)
	}, fast(5)...)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errBusy)
}

func TestDo_PlainErrorNotRetriedByDefault(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errBusy
	}, fast(5)...)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errBusy)
}

func TestDo_RetryIfAndOnRetry(t *testing.T) {
	var seen []int
	opts := append(fast(3),
		WithRetryIf(func(err error) bool { return errors.Is(err, errBusy) }),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { seen = append(seen, attempt) }),
	)

	err := Do(context.Background(), func(context.Context) error { return errBusy }, opts...)

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.Zero(t, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWith_KeepsPresetAndAddsHook(t *testing.T) {
	var waits []time.Duration
	r := RedisRetrier().With(
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(time.Millisecond),
		WithJitter(0),
		WithOnRetry(func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }),
	)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return Retryable(errBusy)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, r.Attempts())
	assert.Equal(t, []time.Duration{time.Millisecond}, waits)
	assert.Nil(t, RedisRetrier().policy.OnRetry)
}

func TestBackoff_CappedWithoutJitter(t *testing.T) {
	r := New(WithInitialDelay(10*time.Millisecond), WithMaxDelay(35*time.Millisecond), WithJitter(0))

	assert.Equal(t, 10*time.Millisecond, r.backoff(1))
	assert.Equal(t, 20*time.Millisecond, r.backoff(2))
	assert.Equal(t, 35*time.Millisecond, r.backoff(3))
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 40, LockRetrier().Attempts())
	assert.Equal(t, 3, RedisRetrier().Attempts())
	assert.Equal(t, 3, DatabaseRetrier().Attempts())
}
