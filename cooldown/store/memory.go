// Package store provides an in-memory cooldown.Store.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/warp/economy-engine/cooldown"
)

var _ cooldown.Store = (*Memory)(nil)

type key struct {
	BucketKey string
	Name      string
}

type Memory struct {
	mu      sync.RWMutex
	entries map[key]cooldown.Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[key]cooldown.Entry)}
}

func (m *Memory) Upsert(_ context.Context, e cooldown.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key{e.BucketKey, e.Name}] = e
	return nil
}

func (m *Memory) Get(_ context.Context, bucketKey, name string) (cooldown.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key{bucketKey, name}]
	if !ok {
		return cooldown.Entry{}, cooldown.ErrCooldownNotFound
	}
	return e, nil
}

func (m *Memory) SetExpiration(_ context.Context, bucketKey, name string, expiresAt int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{bucketKey, name}
	e, ok := m.entries[k]
	if !ok {
		return false, nil
	}
	e.ExpiresAt = expiresAt
	m.entries[k] = e
	return true, nil
}

func (m *Memory) Delete(_ context.Context, bucketKey, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{bucketKey, name}
	_, ok := m.entries[k]
	delete(m.entries, k)
	return ok, nil
}

func (m *Memory) DeleteIfExpired(_ context.Context, bucketKey, name string, now int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{bucketKey, name}
	e, ok := m.entries[k]
	if !ok || e.ExpiresAt > now {
		return false, nil
	}
	delete(m.entries, k)
	return true, nil
}

func (m *Memory) DeleteBucket(_ context.Context, bucketKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if k.BucketKey == bucketKey {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListBucket(_ context.Context, bucketKey string) ([]cooldown.Entry, error) {
	return m.list(func(e cooldown.Entry) bool { return e.BucketKey == bucketKey }), nil
}

func (m *Memory) ListByName(_ context.Context, name string) ([]cooldown.Entry, error) {
	return m.list(func(e cooldown.Entry) bool { return e.Name == name }), nil
}

func (m *Memory) ActiveBucketKeys(_ context.Context, now int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for _, e := range m.entries {
		if e.ExpiresAt > now {
			keys = append(keys, e.BucketKey)
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func (m *Memory) DeleteExpired(_ context.Context, now int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.ExpiresAt <= now {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) list(match func(cooldown.Entry) bool) []cooldown.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []cooldown.Entry
	for _, e := range m.entries {
		if match(e) {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b cooldown.Entry) int {
		if c := cmp.Compare(a.ExpiresAt, b.ExpiresAt); c != 0 {
			return c
		}
		return cmp.Compare(a.BucketKey+"\x00"+a.Name, b.BucketKey+"\x00"+b.Name)
	})
	return result
}
