package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/config"
	errs "imgurstats/pkg/errors"
	"imgurstats/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), backoff.NextDelay(0))
	assert.Equal(t, 500*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, time.Second, backoff.NextDelay(2))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(3))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(9))
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}
	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Delay: 250 * time.Millisecond}
	assert.Zero(t, b.NextDelay(0))
	assert.Equal(t, 250*time.Millisecond, b.NextDelay(4))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Wait(ctx, 0), context.Canceled)
}

func noSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeServerError, 502, "bad gateway")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Second},
		Logger:      logger.NewNopLogger(),
		Sleep:       noSleep(&delays),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, delays)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeAuth, 403, "forbidden")
	}, &Config{MaxAttempts: 5, Sleep: noSleep(&delays)})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	var delays []time.Duration
	tl := logger.NewTestLogger()
	err := Do(func() error {
		return errs.New(errs.ErrorTypeTransport, 0, "connection reset")
	}, &Config{MaxAttempts: 2, Logger: tl, Sleep: noSleep(&delays)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retry attempts (2) exceeded")
	assert.Equal(t, errs.ErrorTypeTransport, errs.TypeOf(err))
	assert.True(t, tl.HasError())
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(func() error {
		return errs.New(errs.ErrorTypeRateLimit, 429, "slow down")
	}, &Config{MaxAttempts: 3, Context: ctx, Backoff: &ConstantBackoff{Delay: time.Hour}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "alice", nil
	}, &Config{MaxAttempts: 2, Sleep: func(context.Context, time.Duration) error { return nil }})

	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("unknown")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, 429, "")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeParsing, 200, "")))
}

func TestFromConfig(t *testing.T) {
	rc := config.DefaultConfig().Retry
	cfg := FromConfig(context.Background(), rc, logger.NewNopLogger())

	assert.Equal(t, rc.MaxAttempts, cfg.MaxAttempts)
	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, rc.InitialDelay, eb.BaseDelay)
}
