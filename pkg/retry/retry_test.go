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
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.Equal(t, 3, calls)
}

func TestDoWithLog_PermanentStopsImmediately(t *testing.T) {
	unauthorized := errors.New("status 401")
	calls, logged := 0, 0
	err := DoWithLog(context.Background(), fastConfig(5), "Ollama", func() error {
		calls++
		return Permanent(unauthorized)
	}, func(int, error, time.Duration) { logged++ })

	assert.ErrorIs(t, err, unauthorized)
	assert.Equal(t, "Ollama: status 401", err.Error())
	assert.Equal(t, 1, calls)
	assert.Zero(t, logged)
}

func TestDoWithLog_LogsEachRetry(t *testing.T) {
	var delays []time.Duration
	_ = DoWithLog(context.Background(), fastConfig(4), "Redis", func() error {
		return errors.New("down")
	}, func(_ int, _ error, next time.Duration) { delays = append(delays, next) })

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(3), func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
