package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("persistent failure")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	sentinel := errors.New("terminal")
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return NonRetryable(sentinel)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsNonRetryable(err))
}

func TestDo_PauseOverridesBackoff(t *testing.T) {
	// A server-mandated pause replaces the computed backoff delay
	pause := 30 * time.Millisecond
	calls := 0
	start := time.Now()

	err := Do(context.Background(), fastConfig(2), func() error {
		calls++
		if calls == 1 {
			return Pause(pause, errors.New("slow down"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), pause)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastConfig(3)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error {
			calls++
			return errors.New("flaky")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDo_InvalidDelayBounds(t *testing.T) {
	cfg := Config{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Millisecond}
	err := Do(context.Background(), cfg, func() error { return nil })
	require.Error(t, err)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

func TestNonRetryable_NilPassthrough(t *testing.T) {
	assert.NoError(t, NonRetryable(nil))
	assert.NoError(t, Pause(time.Second, nil))
	assert.False(t, IsNonRetryable(nil))
}
