package cooldown_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/economy-engine/cooldown"
)

func TestManager_Statistics(t *testing.T) {
	// GIVEN: "daily" on two users and a guild, one of the users expired,
	//        plus a row written by another tool with an unknown key prefix
	// WHEN: Computing statistics for "daily"
	// THEN: Live and stale rows are counted, live ones broken down by kind

	m, mem, clock := newTestManager(t)
	ctx := context.Background()

	_, err := bucketOf(t, m, cooldown.User(1)).Set(ctx, "daily", time.Second, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.User(2)).Set(ctx, "daily", time.Hour, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.Guild(3)).Set(ctx, "daily", time.Hour, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.User(4)).Set(ctx, "weekly", time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, mem.Upsert(ctx, cooldown.Entry{
		BucketKey: "legacy",
		Name:      "daily",
		CreatedAt: epoch.Unix(),
		ExpiresAt: epoch.Unix() + 3600,
	}))

	clock.Advance(2 * time.Second)

	stats, err := m.Statistics(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, "daily", stats.Name)
	assert.Equal(t, 3, stats.Active)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 4, stats.Total())
	assert.Equal(t, map[string]int{"user": 1, "guild": 1, "unknown": 1}, stats.EntityTypes)
}

func TestManager_Statistics_UnknownName(t *testing.T) {
	m, _, _ := newTestManager(t)

	stats, err := m.Statistics(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Zero(t, stats.Total())
	assert.Empty(t, stats.EntityTypes)
}

func TestManager_EntitiesWithCooldown(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	_, err := bucketOf(t, m, cooldown.User(1)).Set(ctx, "daily", time.Second, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.Thread(5)).Set(ctx, "daily", time.Hour, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.Custom("shop_7")).Set(ctx, "daily", time.Minute, nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	holders, err := m.EntitiesWithCooldown(ctx, "daily")
	require.NoError(t, err)
	require.Len(t, holders, 2)

	assert.Equal(t, cooldown.Custom("shop_7"), holders[0].Entity)
	assert.Equal(t, "custom_shop_7", holders[0].BucketKey)
	assert.Equal(t, cooldown.Thread(5), holders[1].Entity)

	none, err := m.EntitiesWithCooldown(ctx, "weekly")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestManager_ActiveBuckets(t *testing.T) {
	m, _, clock := newTestManager(t)
	ctx := context.Background()

	_, err := bucketOf(t, m, cooldown.User(1)).Set(ctx, "a", time.Second, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.User(2)).Set(ctx, "a", time.Hour, nil)
	require.NoError(t, err)
	_, err = bucketOf(t, m, cooldown.User(2)).Set(ctx, "b", time.Hour, nil)
	require.NoError(t, err)

	clock.Advance(time.Second)

	keys, err := m.ActiveBuckets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_2"}, keys)
}

func TestManager_CleanupExpired(t *testing.T) {
	m, mem, clock := newTestManager(t)
	ctx := context.Background()

	for i, d := range []time.Duration{time.Second, 2 * time.Second, time.Hour} {
		_, err := bucketOf(t, m, cooldown.User(int64(i+1))).Set(ctx, "x", d, nil)
		require.NoError(t, err)
	}

	clock.Advance(2 * time.Second)

	n, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := mem.ListByName(ctx, "x")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user_3", entries[0].BucketKey)

	n, err = m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManager_Bucket_UnknownKindFailsFast(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Bucket(cooldown.Entity{Kind: "emoji", ID: "1"})
	assert.ErrorIs(t, err, cooldown.ErrUnknownEntityKind)

	_, err = m.Bucket(nil)
	assert.ErrorIs(t, err, cooldown.ErrInvalidEntity)
}
