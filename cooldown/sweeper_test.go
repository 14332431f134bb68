package cooldown_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/economy-engine/cooldown"
)

func TestSweeper_RemovesExpired(t *testing.T) {
	m, mem, clock := newTestManager(t)
	ctx := context.Background()

	_, err := bucketOf(t, m, cooldown.User(1)).Set(ctx, "x", time.Second, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.User(2)).Set(ctx, "x", time.Hour, nil)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	s := cooldown.NewSweeper(m)
	s.Interval = 10 * time.Millisecond
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return s.Swept() == 1 }, time.Second, 5*time.Millisecond)

	entries, err := mem.ListByName(ctx, "x")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user_2", entries[0].BucketKey)
}

func TestSweeper_Disabled(t *testing.T) {
	m, _, clock := newTestManager(t)
	_, err := bucketOf(t, m, cooldown.User(1)).Set(context.Background(), "x", time.Second, nil)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	s := cooldown.NewSweeper(m)
	s.Interval = 0
	s.Start()
	s.Stop()

	assert.Zero(t, s.Swept())
}

func TestSweeper_StartStopIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)

	s := cooldown.NewSweeper(m)
	s.Interval = time.Hour
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
