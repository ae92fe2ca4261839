package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsWithoutRetryWhenFnSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(attempt int) error {
		calls++
		return nil
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUpToMaxAttemptsThenFails(t *testing.T) {
	calls := 0
	retries := 0
	start := time.Now()
	err := Do(context.Background(), func(attempt int) error {
		calls++
		return errors.New("boom")
	}, func(attempt int, err error) {
		retries++
	}, nil)
	assert.Error(t, err)
	assert.Equal(t, MaxAttempts, calls)
	assert.Equal(t, MaxAttempts-1, retries)
	assert.Less(t, time.Since(start), capBackoff*MaxAttempts)
}

func TestDoStopsImmediatelyOnNonTransientError(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	err := Do(context.Background(), func(attempt int) error {
		calls++
		return fatal
	}, nil, func(err error) bool { return false })
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, func(attempt int) error {
		calls++
		return errors.New("boom")
	}, nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
