package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("broker unreachable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsConfiguredAttempts(t *testing.T) {
	cause := errors.New("broker unreachable")
	calls := 0
	delay := 10 * time.Millisecond

	start := time.Now()
	err := Do(context.Background(), 5, delay, func() error {
		calls++
		return cause
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 5, calls)
	// 4 段固定间隔：最后一次失败后不再等待
	assert.GreaterOrEqual(t, elapsed, 4*delay)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 5, exhausted.Attempts)
	assert.ErrorIs(t, err, cause)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, 5, time.Second, func() error {
		calls++
		return errors.New("still failing")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoNormalizesAttemptFloor(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return errors.New("boom")
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Equal(t, 1, calls)
}
