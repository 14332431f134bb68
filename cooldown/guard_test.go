package cooldown_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/economy-engine/cooldown"
)

func TestGuard(t *testing.T) {
	// GIVEN: A command guarded by a 1 minute cooldown
	// WHEN: Invoked twice in a row, then again after the minute
	// THEN: Runs, is refused with the time left, then runs again

	m, _, clock := newTestManager(t)
	ctx := context.Background()
	b := bucketOf(t, m, cooldown.User(1))

	calls := 0
	claim := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, cooldown.Guard(ctx, b, "daily", time.Minute, claim))
	assert.Equal(t, 1, calls)

	clock.Advance(15 * time.Second)
	err := cooldown.Guard(ctx, b, "daily", time.Minute, claim)
	require.ErrorIs(t, err, cooldown.ErrCooldownActive)
	remaining, _ := cooldown.RemainingOf(err)
	assert.Equal(t, 45*time.Second, remaining)
	assert.Equal(t, 1, calls)

	clock.Advance(45 * time.Second)
	require.NoError(t, cooldown.Guard(ctx, b, "daily", time.Minute, claim))
	assert.Equal(t, 2, calls)
}

func TestGuard_FailureStartsNoCooldown(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	b := bucketOf(t, m, cooldown.User(1))

	boom := errors.New("boom")
	err := cooldown.Guard(ctx, b, "daily", time.Minute, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	ready, err := b.Ready(ctx, "daily")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestGuard_ConcurrentCallsRunOnce(t *testing.T) {
	// GIVEN: Twenty concurrent claims of the same "daily" cooldown
	// WHEN: Each goes through Guard with its own bucket handle
	// THEN: Exactly one runs; the others are refused as active

	m, _, _ := newTestManager(t)
	ctx := context.Background()

	const callers = 20
	var ran atomic.Int32
	var refused atomic.Int32
	var wg sync.WaitGroup
	for range callers {
		b := bucketOf(t, m, cooldown.User(1))
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cooldown.Guard(ctx, b, "daily", time.Hour, func(context.Context) error {
				ran.Add(1)
				time.Sleep(time.Millisecond)
				return nil
			})
			if errors.Is(err, cooldown.ErrCooldownActive) {
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, int32(callers-1), refused.Load())
}

func TestGuard_InvalidDurationRunsNothing(t *testing.T) {
	m, _, _ := newTestManager(t)
	b := bucketOf(t, m, cooldown.User(1))

	ran := false
	err := cooldown.Guard(context.Background(), b, "daily", 0, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, cooldown.ErrInvalidDuration)
	assert.False(t, ran)
}

func TestRequireReady(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	b := bucketOf(t, m, cooldown.Guild(1))

	ran := 0
	fn := func(context.Context) error { ran++; return nil }

	require.NoError(t, cooldown.RequireReady(ctx, b, "raid", fn))
	assert.Equal(t, 1, ran)

	ready, err := b.Ready(ctx, "raid")
	require.NoError(t, err)
	assert.True(t, ready, "RequireReady never starts a cooldown")

	_, err = b.Set(ctx, "raid", time.Hour, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, cooldown.RequireReady(ctx, b, "raid", fn), cooldown.ErrCooldownActive)
	assert.Equal(t, 1, ran)
}
