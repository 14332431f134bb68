package cooldown

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCooldownActive is returned by Check while a timer is live.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrCooldownNotFound is returned by stores for absent (bucket, name) pairs.
	ErrCooldownNotFound = errors.New("cooldown not found")

	// ErrInvalidDuration is returned for durations under one second and for
	// expiry updates that carry neither a duration nor an absolute time.
	ErrInvalidDuration = errors.New("invalid cooldown duration")

	// ErrUnknownEntityKind is returned when deriving a key for an unknown kind.
	ErrUnknownEntityKind = errors.New("unknown entity kind")

	// ErrInvalidEntity is returned for nil entities or empty ids.
	ErrInvalidEntity = errors.New("invalid entity")
)

// ActiveError carries the time left on a live cooldown.
type ActiveError struct {
	BucketKey string
	Name      string
	Remaining time.Duration
}

func (e *ActiveError) Error() string {
	return fmt.Sprintf("cooldown %q active for %q: %s remaining", e.Name, e.BucketKey, e.Remaining)
}

func (e *ActiveError) Unwrap() error { return ErrCooldownActive }

// RemainingOf returns the remaining time carried by an ActiveError in err's
// chain, and whether there was one.
func RemainingOf(err error) (time.Duration, bool) {
	var active *ActiveError
	if errors.As(err, &active) {
		return active.Remaining, true
	}
	return 0, false
}
