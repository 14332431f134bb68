package cooldown

import "time"

// Entry is one named timer in a bucket. Times are unix seconds.
type Entry struct {
	BucketKey string
	Name      string
	ExpiresAt int64
	CreatedAt int64
	Metadata  *string
}

// Duration is the total length the timer was set for.
func (e Entry) Duration() time.Duration {
	return time.Duration(e.ExpiresAt-e.CreatedAt) * time.Second
}

// Expired reports whether the timer has run out at now.
func (e Entry) Expired(now time.Time) bool {
	return now.Unix() >= e.ExpiresAt
}

// Remaining is the time left at now, or 0 once expired.
func (e Entry) Remaining(now time.Time) time.Duration {
	if e.Expired(now) {
		return 0
	}
	return time.Unix(e.ExpiresAt, 0).Sub(now)
}

// Progress is the elapsed fraction of the timer at now, in [0, 1].
func (e Entry) Progress(now time.Time) float64 {
	total := e.ExpiresAt - e.CreatedAt
	if total <= 0 {
		return 1
	}
	elapsed := now.Unix() - e.CreatedAt
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= total:
		return 1
	}
	return float64(elapsed) / float64(total)
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (e Entry) ExpiresTime() time.Time {
	return time.Unix(e.ExpiresAt, 0).UTC()
}
