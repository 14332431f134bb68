package sqlite_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/economy-engine/cooldown"
	"github.com/warp/economy-engine/store/sqlite"
)

func newTestCooldownStore(t *testing.T) *sqlite.CooldownStore {
	t.Helper()
	store, err := sqlite.OpenCooldowns(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func entry(bucket, name string, createdAt, expiresAt int64) cooldown.Entry {
	return cooldown.Entry{BucketKey: bucket, Name: name, CreatedAt: createdAt, ExpiresAt: expiresAt}
}

func TestCooldownStore_UpsertGet(t *testing.T) {
	store := newTestCooldownStore(t)
	ctx := context.Background()

	meta := "from slash command"
	e := entry("user_1", "daily", 100, 200)
	e.Metadata = &meta
	require.NoError(t, store.Upsert(ctx, e))

	got, err := store.Get(ctx, "user_1", "daily")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	// Upsert replaces every column.
	require.NoError(t, store.Upsert(ctx, entry("user_1", "daily", 150, 400)))
	got, err = store.Get(ctx, "user_1", "daily")
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.ExpiresAt)
	assert.Equal(t, int64(150), got.CreatedAt)
	assert.Nil(t, got.Metadata)

	_, err = store.Get(ctx, "user_1", "weekly")
	assert.ErrorIs(t, err, cooldown.ErrCooldownNotFound)
}

func TestCooldownStore_SetExpirationAndDelete(t *testing.T) {
	store := newTestCooldownStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, entry("user_1", "daily", 100, 200)))

	ok, err := store.SetExpiration(ctx, "user_1", "daily", 300)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetExpiration(ctx, "user_1", "ghost", 300)
	require.NoError(t, err)
	assert.False(t, ok, "absent rows are not created")

	ok, err = store.DeleteIfExpired(ctx, "user_1", "daily", 299)
	require.NoError(t, err)
	assert.False(t, ok, "live row is kept")

	ok, err = store.DeleteIfExpired(ctx, "user_1", "daily", 300)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, "user_1", "daily")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCooldownStore_Listing(t *testing.T) {
	store := newTestCooldownStore(t)
	ctx := context.Background()

	for _, e := range []cooldown.Entry{
		entry("user_1", "daily", 0, 300),
		entry("user_1", "weekly", 0, 100),
		entry("guild_2", "daily", 0, 200),
		entry("user_3", "daily", 0, 50),
	} {
		require.NoError(t, store.Upsert(ctx, e))
	}

	bucket, err := store.ListBucket(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, bucket, 2)
	assert.Equal(t, "weekly", bucket[0].Name)
	assert.Equal(t, "daily", bucket[1].Name)

	byName, err := store.ListByName(ctx, "daily")
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, []string{"user_3", "guild_2", "user_1"},
		[]string{byName[0].BucketKey, byName[1].BucketKey, byName[2].BucketKey})

	keys, err := store.ActiveBucketKeys(ctx, 150)
	require.NoError(t, err)
	assert.Equal(t, []string{"guild_2", "user_1"}, keys)

	n, err := store.DeleteExpired(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.DeleteBucket(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := store.ListByName(ctx, "daily")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "guild_2", remaining[0].BucketKey)
}

func TestCooldownManager_SQLite(t *testing.T) {
	// GIVEN: A manager over SQLite with a controllable clock
	// WHEN: A 5s cooldown elapses
	// THEN: The lazy read deletes the row

	store := newTestCooldownStore(t)
	m := cooldown.NewManager(store)
	now := time.Unix(1_700_000_000, 0)
	m.Now = func() time.Time { return now }
	ctx := context.Background()

	b, err := m.Bucket(cooldown.User(42))
	require.NoError(t, err)
	_, err = b.Set(ctx, "daily", 5*time.Second, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, b.Check(ctx, "daily"), cooldown.ErrCooldownActive)

	now = now.Add(5 * time.Second)
	has, err := b.Has(ctx, "daily")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.Get(ctx, "user_42", "daily")
	assert.ErrorIs(t, err, cooldown.ErrCooldownNotFound)
}

func TestCooldownStore_WriteError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlite.NewCooldownStore(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cooldowns WHERE expires_at <= ?")).
		WithArgs(int64(100)).
		WillReturnError(errors.New("database is locked"))

	_, err = store.DeleteExpired(context.Background(), 100)
	assert.ErrorContains(t, err, "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
