package attempts

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures.
var ErrUnavailable = errors.New("attempt store unavailable")

// DefaultRetention is how long an untouched counter is kept when no retention
// is configured.
const DefaultRetention = 24 * time.Hour

// Counter is the failure streak of one identifier.
type Counter struct {
	Count          int
	FirstFailureAt time.Time
}

// LockedAt reports whether c is at or above threshold and its window, measured
// from the first failure, has not yet elapsed at now.
func (c Counter) LockedAt(now time.Time, threshold int, window time.Duration) bool {
	return c.Count >= threshold && now.Sub(c.FirstFailureAt) < window
}

// Store is implemented by every counter backend.
type Store interface {
	Get(ctx context.Context, identifier string) (Counter, bool, error)
	Increment(ctx context.Context, identifier string, now time.Time) (Counter, error)
	Clear(ctx context.Context, identifier string) error
}
