/*
Package cooldown provides named, independently expiring timers per entity.

PURPOSE:
  A bucket groups the cooldowns of one entity (a user, a guild, a channel,
  ...). Each cooldown in a bucket has a name and an absolute expiry; there is
  at most one live timer per (bucket, name).

EXPIRY:
  Expiry is lazy. Every read compares ExpiresAt with the clock and deletes
  the row it finds stale, so correctness never depends on a background
  sweep. Sweeper and Manager.CleanupExpired only keep storage small.

BUCKET KEYS:
  Keys are derived from a closed set of entity kinds, "<kind>_<id>". The
  same logical entity always maps to the same key; unknown kinds are
  rejected instead of falling back to a generic bucket.

SEE ALSO:
  - bucket.go:  Per-entity operations
  - manager.go: Cross-entity queries and cleanup
  - guard.go:   Check-run-set helpers for rate-limited actions
*/
package cooldown

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of entity a bucket belongs to.
type Kind string

const (
	KindUser    Kind = "user"
	KindGuild   Kind = "guild"
	KindChannel Kind = "channel"
	KindRole    Kind = "role"
	KindThread  Kind = "thread"
	KindCustom  Kind = "custom"
)

var kinds = map[Kind]bool{
	KindUser:    true,
	KindGuild:   true,
	KindChannel: true,
	KindRole:    true,
	KindThread:  true,
	KindCustom:  true,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return kinds[k]
}

// Entity identifies the owner of a bucket.
type Entity struct {
	Kind Kind
	ID   string
}

// Identifiable is implemented by caller types that own cooldowns.
type Identifiable interface {
	CooldownEntity() Entity
}

// CooldownEntity lets Entity be passed wherever an Identifiable is expected.
func (e Entity) CooldownEntity() Entity { return e }

func User(id int64) Entity    { return Entity{Kind: KindUser, ID: strconv.FormatInt(id, 10)} }
func Guild(id int64) Entity   { return Entity{Kind: KindGuild, ID: strconv.FormatInt(id, 10)} }
func Channel(id int64) Entity { return Entity{Kind: KindChannel, ID: strconv.FormatInt(id, 10)} }
func Role(id int64) Entity    { return Entity{Kind: KindRole, ID: strconv.FormatInt(id, 10)} }
func Thread(id int64) Entity  { return Entity{Kind: KindThread, ID: strconv.FormatInt(id, 10)} }
func Custom(id string) Entity { return Entity{Kind: KindCustom, ID: id} }

// Key derives the bucket key of an entity.
func Key(e Identifiable) (string, error) {
	if e == nil {
		return "", fmt.Errorf("%w: nil entity", ErrInvalidEntity)
	}
	entity := e.CooldownEntity()
	if !entity.Kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityKind, entity.Kind)
	}
	if entity.ID == "" {
		return "", fmt.Errorf("%w: empty %s id", ErrInvalidEntity, entity.Kind)
	}
	return string(entity.Kind) + "_" + entity.ID, nil
}

// ParseKey splits a bucket key back into its entity. Keys written by other
// tools that carry no known kind prefix are returned with an empty Kind.
func ParseKey(key string) Entity {
	kind, id, ok := strings.Cut(key, "_")
	if !ok || !Kind(kind).Valid() {
		return Entity{ID: key}
	}
	return Entity{Kind: Kind(kind), ID: id}
}
