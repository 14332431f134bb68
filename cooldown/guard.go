package cooldown

import (
	"context"
	"time"
)

// Guard runs fn only if the named cooldown is not live, then starts the
// cooldown for d. The cooldown is not started when fn fails.
//
// Concurrent Guard calls for the same bucket and name are serialized within
// the Manager, so at most one of them runs fn per cooldown period. Calls that
// bypass Guard (Set, Remove, another process on the same store) are not.
func Guard(ctx context.Context, b *Bucket, name string, d time.Duration, fn func(context.Context) error) error {
	if _, err := wholeSeconds(d); err != nil {
		return err
	}

	unlock := b.manager.guards.lock(b.key, name)
	defer unlock()

	if err := b.Check(ctx, name); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return err
	}
	_, err := b.Set(ctx, name, d, nil)
	return err
}

// RequireReady runs fn only if the named cooldown is not live. It never
// starts a cooldown itself.
func RequireReady(ctx context.Context, b *Bucket, name string, fn func(context.Context) error) error {
	if err := b.Check(ctx, name); err != nil {
		return err
	}
	return fn(ctx)
}
