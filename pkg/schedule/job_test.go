package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJob_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	job := NewJob("ok", func(ctx context.Context) error {
		calls++
		return nil
	}, Options{MaxAttempts: 3})

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, calls)
}

func TestJob_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	job := NewJob("flaky", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Options{MaxAttempts: 3, MaxBackoff: time.Millisecond, JitterMax: time.Millisecond})

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 3, calls)
}

func TestJob_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("gateway down")
	calls := 0
	job := NewJob("down", func(ctx context.Context) error {
		calls++
		return wantErr
	}, Options{MaxAttempts: 3, MaxBackoff: time.Millisecond, JitterMax: time.Millisecond})

	err := job.Run(context.Background())
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, calls)
}

func TestJob_TimeoutStopsRetries(t *testing.T) {
	job := NewJob("slow", func(ctx context.Context) error {
		return errors.New("still failing")
	}, Options{
		Timeout:     10 * time.Millisecond,
		MaxAttempts: 100,
		MaxBackoff:  time.Hour,
	})

	err := job.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff_Bounded(t *testing.T) {
	require.Equal(t, time.Duration(0), backoff(0, time.Minute))
	require.Equal(t, time.Second, backoff(1, time.Minute))
	require.Equal(t, 2*time.Second, backoff(2, time.Minute))
	require.Equal(t, time.Minute, backoff(30, time.Minute))
}
