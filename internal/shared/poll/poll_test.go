package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilSucceedsImmediately(t *testing.T) {
	calls := 0
	ok, err := Until(context.Background(), time.Hour, time.Now().Add(time.Second), func(context.Context) (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
}

func TestUntilSucceedsAfterTicks(t *testing.T) {
	calls := 0
	ok, err := Until(context.Background(), 5*time.Millisecond, time.Now().Add(time.Second), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestUntilDeadline(t *testing.T) {
	start := time.Now()
	ok, err := Until(context.Background(), 10*time.Millisecond, start.Add(50*time.Millisecond), func(context.Context) (bool, error) {
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestUntilPastDeadlineNeverCalls(t *testing.T) {
	ok, err := Until(context.Background(), time.Millisecond, time.Now().Add(-time.Second), func(context.Context) (bool, error) {
		t.Fatal("cond must not run")
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUntilPropagatesCondError(t *testing.T) {
	boom := errors.New("boom")
	ok, err := Until(context.Background(), time.Millisecond, time.Now().Add(time.Second), func(context.Context) (bool, error) {
		return false, boom
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestUntilContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := Until(ctx, 10*time.Millisecond, time.Now().Add(time.Second), func(context.Context) (bool, error) {
		return false, nil
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
