package auth

import (
	"sync"
	"time"
)

const (
	// activityCheckInterval is how often the coordinator considers an
	// activity-driven renewal.
	activityCheckInterval = time.Minute
	// activityWindow is how recently the user must have interacted for the
	// session to count as active.
	activityWindow = 5 * time.Minute
)

// activityTracker records the last user interaction. Embedders call Touch on
// pointer, keyboard or equivalent events; the coordinator renews tokens
// proactively while interactions keep arriving, so active users stay signed
// in indefinitely and idle sessions lapse naturally.
type activityTracker struct {
	mu   sync.Mutex
	last time.Time
}

func (a *activityTracker) touch(now time.Time) {
	a.mu.Lock()
	a.last = now
	a.mu.Unlock()
}

func (a *activityTracker) activeWithin(window time.Duration, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.last.IsZero() && now.Sub(a.last) <= window
}
