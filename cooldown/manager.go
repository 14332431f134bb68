package cooldown

import (
	"context"
	"log"
	"time"
)

// Manager hands out buckets and answers store-wide queries.
type Manager struct {
	Store Store
	Now   func() time.Time

	guards timerLocks
}

// NewManager creates a manager over store using the wall clock.
func NewManager(store Store) *Manager {
	return &Manager{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now()
}

// Bucket returns the bucket of an entity.
func (m *Manager) Bucket(entity Identifiable) (*Bucket, error) {
	key, err := Key(entity)
	if err != nil {
		return nil, err
	}
	return &Bucket{key: key, manager: m}, nil
}

// EntityCooldown is one entity holding a given cooldown.
type EntityCooldown struct {
	BucketKey string
	Entity    Entity
	Cooldown  Entry
}

// EntitiesWithCooldown lists every entity with a live cooldown of that
// name, soonest expiry first.
func (m *Manager) EntitiesWithCooldown(ctx context.Context, name string) ([]EntityCooldown, error) {
	entries, err := m.Store.ListByName(ctx, name)
	if err != nil {
		return nil, err
	}

	now := m.now()
	result := []EntityCooldown{}
	for _, e := range entries {
		if e.Expired(now) {
			continue
		}
		result = append(result, EntityCooldown{
			BucketKey: e.BucketKey,
			Entity:    ParseKey(e.BucketKey),
			Cooldown:  e,
		})
	}
	return result, nil
}

// Statistics summarizes the entries of one cooldown name.
type Statistics struct {
	Name    string
	Active  int
	Expired int // stale rows not yet deleted
	// EntityTypes counts live entries per entity kind. Keys without a known
	// kind are counted under "unknown".
	EntityTypes map[string]int
}

// Total is Active + Expired.
func (s Statistics) Total() int {
	return s.Active + s.Expired
}

// Statistics counts live and stale entries of a cooldown name.
func (m *Manager) Statistics(ctx context.Context, name string) (Statistics, error) {
	entries, err := m.Store.ListByName(ctx, name)
	if err != nil {
		return Statistics{}, err
	}

	now := m.now()
	stats := Statistics{Name: name, EntityTypes: map[string]int{}}
	for _, e := range entries {
		if e.Expired(now) {
			stats.Expired++
			continue
		}
		stats.Active++
		kind := string(ParseKey(e.BucketKey).Kind)
		if kind == "" {
			kind = "unknown"
		}
		stats.EntityTypes[kind]++
	}
	return stats, nil
}

// ActiveBuckets returns the keys of all buckets holding a live cooldown.
func (m *Manager) ActiveBuckets(ctx context.Context) ([]string, error) {
	return m.Store.ActiveBucketKeys(ctx, m.now().Unix())
}

// CleanupExpired deletes every expired entry regardless of name.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	n, err := m.Store.DeleteExpired(ctx, m.now().Unix())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[Cooldowns] Removed %d expired cooldowns", n)
	}
	return n, nil
}
