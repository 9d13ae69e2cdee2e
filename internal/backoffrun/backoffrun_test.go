package backoffrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/errkind"
)

func TestRunSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, 3, time.Millisecond, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRetriesRetriableThenSucceeds(t *testing.T) {
	calls := 0
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errkind.New(errkind.RateLimited, "429")
		}
		return nil
	}, 5, time.Millisecond, "test")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunPropagatesNonRetriableImmediately(t *testing.T) {
	calls := 0
	sentinel := errkind.New(errkind.MintNotFound, "nope")
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	}, 5, time.Millisecond, "test")
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRunExhaustsRetries(t *testing.T) {
	calls := 0
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		return errkind.New(errkind.Timeout, "slow")
	}, 3, time.Millisecond, "test")
	require.Error(t, err)
	k, ok := errkind.Of(err)
	require.True(t, ok)
	assert.Equal(t, errkind.RetriesExhausted, k)
	assert.Equal(t, 3, calls)
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, func(ctx context.Context) error {
		return errkind.New(errkind.Timeout, "slow")
	}, 5, time.Millisecond, "test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errkind.Is(err, errkind.RetriesExhausted))
}

func TestRunUsesDefaultDelayWhenZero(t *testing.T) {
	calls := 0
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, 3, 0, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
