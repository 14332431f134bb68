package cooldown

import (
	"context"
	"errors"
	"time"
)

// Bucket holds the cooldowns of one entity.
type Bucket struct {
	key     string
	manager *Manager
}

// Key returns the bucket key.
func (b *Bucket) Key() string { return b.key }

func (b *Bucket) String() string { return "cooldown bucket " + b.key }

// Set starts (or restarts) the named cooldown for d, replacing any existing
// timer with the same name. d is truncated to whole seconds and must be at
// least one second.
func (b *Bucket) Set(ctx context.Context, name string, d time.Duration, metadata *string) (Entry, error) {
	seconds, err := wholeSeconds(d)
	if err != nil {
		return Entry{}, err
	}

	now := b.manager.now().Unix()
	e := Entry{
		BucketKey: b.key,
		Name:      name,
		ExpiresAt: now + seconds,
		CreatedAt: now,
		Metadata:  metadata,
	}
	if err := b.manager.Store.Upsert(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns the named cooldown if it is live. A stale entry is deleted.
func (b *Bucket) Get(ctx context.Context, name string) (Entry, bool, error) {
	e, err := b.manager.Store.Get(ctx, b.key, name)
	if errors.Is(err, ErrCooldownNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	now := b.manager.now()
	if e.Expired(now) {
		if _, err := b.manager.Store.DeleteIfExpired(ctx, b.key, name, now.Unix()); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Has reports whether the named cooldown is live.
func (b *Bucket) Has(ctx context.Context, name string) (bool, error) {
	_, ok, err := b.Get(ctx, name)
	return ok, err
}

// Remaining returns the time left on the named cooldown, 0 if absent.
func (b *Bucket) Remaining(ctx context.Context, name string) (time.Duration, error) {
	e, ok, err := b.Get(ctx, name)
	if err != nil || !ok {
		return 0, err
	}
	return e.Remaining(b.manager.now()), nil
}

// Check returns an *ActiveError while the named cooldown is live.
func (b *Bucket) Check(ctx context.Context, name string) error {
	remaining, err := b.Remaining(ctx, name)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return &ActiveError{BucketKey: b.key, Name: name, Remaining: remaining}
	}
	return nil
}

// Ready is Check without the error: it reports whether the cooldown is over.
func (b *Bucket) Ready(ctx context.Context, name string) (bool, error) {
	remaining, err := b.Remaining(ctx, name)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// ExpiryUpdate describes a new expiry. A non-zero At wins over Duration.
type ExpiryUpdate struct {
	Duration time.Duration // from now
	At       time.Time     // absolute
}

// UpdateExpiration moves the expiry of an existing live cooldown. It
// returns false, and creates nothing, when there is no such cooldown.
func (b *Bucket) UpdateExpiration(ctx context.Context, name string, u ExpiryUpdate) (bool, error) {
	var expiresAt int64
	switch {
	case !u.At.IsZero():
		expiresAt = u.At.Unix()
	case u.Duration != 0:
		seconds, err := wholeSeconds(u.Duration)
		if err != nil {
			return false, err
		}
		expiresAt = b.manager.now().Unix() + seconds
	default:
		return false, ErrInvalidDuration
	}

	if _, ok, err := b.Get(ctx, name); err != nil || !ok {
		return false, err
	}
	return b.manager.Store.SetExpiration(ctx, b.key, name, expiresAt)
}

// Remove deletes the named cooldown and reports whether it existed.
func (b *Bucket) Remove(ctx context.Context, name string) (bool, error) {
	return b.manager.Store.Delete(ctx, b.key, name)
}

// Clear deletes every cooldown in the bucket.
func (b *Bucket) Clear(ctx context.Context) (int, error) {
	return b.manager.Store.DeleteBucket(ctx, b.key)
}

// All returns the live cooldowns of the bucket, soonest expiry first, and
// deletes the stale ones it meets.
func (b *Bucket) All(ctx context.Context) ([]Entry, error) {
	entries, err := b.manager.Store.ListBucket(ctx, b.key)
	if err != nil {
		return nil, err
	}

	now := b.manager.now()
	live := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Expired(now) {
			live = append(live, e)
			continue
		}
		if _, err := b.manager.Store.DeleteIfExpired(ctx, b.key, e.Name, now.Unix()); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func wholeSeconds(d time.Duration) (int64, error) {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return 0, ErrInvalidDuration
	}
	return seconds, nil
}
