package collector

import (
	"sync"
	"time"
)

const (
	// notifyAfter is the number of consecutive failures before the first
	// notification is suggested.
	notifyAfter = 3
	// notifyEvery throttles repeat notifications for a sustained outage.
	notifyEvery = time.Hour
)

// FailureTracker observes consecutive collection failures for one structure
// and exposes a throttled should-notify decision, so a transient outage does
// not become an alert storm while a sustained one still surfaces. Callers own
// one tracker per structure.
type FailureTracker struct {
	mu           sync.Mutex
	consecutive  int
	lastNotified time.Time
}

// RecordFailure increments the consecutive-failure counter.
func (t *FailureTracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
}

// RecordSuccess resets the counter and the last-notified marker.
func (t *FailureTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive = 0
	t.lastNotified = time.Time{}
}

// Consecutive returns the current consecutive-failure count.
func (t *FailureTracker) Consecutive() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutive
}

// ShouldNotify returns true when a notification is due: on the third and
// subsequent consecutive failures, at most once per hour. When it returns
// true the tracker records now as the last notification time.
func (t *FailureTracker) ShouldNotify(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.consecutive < notifyAfter {
		return false
	}
	if !t.lastNotified.IsZero() && now.Sub(t.lastNotified) < notifyEvery {
		return false
	}
	t.lastNotified = now
	return true
}
