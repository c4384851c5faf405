package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollReturnsPendingAfterMaxAttempts(t *testing.T) {
	const interval = 5 * time.Millisecond
	var calls int

	start := time.Now()
	res, pending, err := Poll(context.Background(), 20, interval, func(context.Context) (string, bool, error) {
		calls++
		return "checking", false, nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, "checking", res)
	assert.Equal(t, 20, calls)
	assert.GreaterOrEqual(t, elapsed, 19*interval)
}

func TestPollStopsWhenDone(t *testing.T) {
	var calls int

	res, pending, err := Poll(context.Background(), 20, time.Millisecond, func(context.Context) (string, bool, error) {
		calls++
		if calls == 3 {
			return "can_be_merged", true, nil
		}
		return "checking", false, nil
	})

	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, "can_be_merged", res)
	assert.Equal(t, 3, calls)
}

func TestPollFirstAttemptIsImmediate(t *testing.T) {
	start := time.Now()

	_, pending, err := Poll(context.Background(), 1, time.Hour, func(context.Context) (int, bool, error) {
		return 1, false, nil
	})

	require.NoError(t, err)
	assert.True(t, pending)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollReturnsProbeError(t *testing.T) {
	probeErr := errors.New("api failure")

	_, pending, err := Poll(context.Background(), 5, time.Millisecond, func(context.Context) (int, bool, error) {
		return 0, false, probeErr
	})

	assert.ErrorIs(t, err, probeErr)
	assert.False(t, pending)
}

func TestPollHonorsContextCancellation(t *testing.T) {
	ctx, cancelFn := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelFn()

	_, pending, err := Poll(ctx, 100, time.Second, func(context.Context) (int, bool, error) {
		return 0, false, nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, pending)
}
