package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokenBucketRefillsEachSecond(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tb := newTokenBucket(2, clk.Now)

	require.True(t, tb.Allow())
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	clk.Add(300 * time.Millisecond)
	require.False(t, tb.Allow())

	clk.Add(time.Second)
	require.True(t, tb.Allow())
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tb := newTokenBucket(1, clk.Now)
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tb.Wait(ctx), context.Canceled)
}

func TestTokenBucketWaitBlocksUntilNextSecond(t *testing.T) {
	tb := NewTokenBucket(1)
	require.NoError(t, tb.Wait(context.Background()))
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, tb.Wait(ctx))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestNewSelectsImplementation(t *testing.T) {
	require.IsType(t, Unlimited{}, New(nil, "probe", 0))
	require.IsType(t, &TokenBucket{}, New(nil, "probe", 5))

	w := NewRedisWindow(nil, "probe", 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Wait(context.Background()))
	}
}
