package cooldown

import "context"

// Store persists cooldown entries keyed by (BucketKey, Name). Stores never
// evaluate expiry on their own except where a method takes now.
//
// IMPLEMENTATIONS:
//   - store/sqlite:     cooldowns.db
//   - cooldown/store:   in-memory, for tests
type Store interface {
	// Upsert inserts e or replaces the entry with the same key and name.
	Upsert(ctx context.Context, e Entry) error

	// Get returns ErrCooldownNotFound if there is no entry.
	Get(ctx context.Context, bucketKey, name string) (Entry, error)

	// SetExpiration changes ExpiresAt of an existing entry. It reports
	// whether a row was updated.
	SetExpiration(ctx context.Context, bucketKey, name string, expiresAt int64) (bool, error)

	// Delete removes one entry and reports whether it existed.
	Delete(ctx context.Context, bucketKey, name string) (bool, error)

	// DeleteIfExpired removes the entry only if ExpiresAt <= now, so a timer
	// re-set concurrently is never lost.
	DeleteIfExpired(ctx context.Context, bucketKey, name string, now int64) (bool, error)

	// DeleteBucket removes every entry of a bucket and returns the count.
	DeleteBucket(ctx context.Context, bucketKey string) (int, error)

	// ListBucket returns a bucket's entries ordered by ExpiresAt ascending.
	ListBucket(ctx context.Context, bucketKey string) ([]Entry, error)

	// ListByName returns every entry with the name, expired ones included,
	// ordered by ExpiresAt ascending.
	ListByName(ctx context.Context, name string) ([]Entry, error)

	// ActiveBucketKeys returns the distinct keys having an entry with
	// ExpiresAt > now.
	ActiveBucketKeys(ctx context.Context, now int64) ([]string, error)

	// DeleteExpired removes every entry with ExpiresAt <= now.
	DeleteExpired(ctx context.Context, now int64) (int, error)
}
