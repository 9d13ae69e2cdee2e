package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireDropsOnExhaustion(t *testing.T) {
	b := New(1, 2)
	assert.True(t, b.TryAcquire(2))
	assert.False(t, b.TryAcquire(1), "bucket should be empty")
}

func TestTryAcquireRefills(t *testing.T) {
	b := New(1000, 1)
	require.True(t, b.TryAcquire(1))
	require.False(t, b.TryAcquire(1))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.TryAcquire(1), "should have refilled by now")
}

func TestAcquireBlocksThenSucceeds(t *testing.T) {
	b := New(1000, 1)
	require.True(t, b.TryAcquire(1))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := b.Acquire(ctx, 1)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	b := New(0.001, 1)
	require.True(t, b.TryAcquire(1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Acquire(ctx, 1)
	assert.Error(t, err)
}
