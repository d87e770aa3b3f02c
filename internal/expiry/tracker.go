package expiry

import "sync"

// Tracker remembers, per hostname, which days-to-expiry values have
// already produced a certificate warning during the current
// approach-to-expiry window. It is the only mutable state shared by
// concurrent probes, so all operations take an internal mutex.
//
// The state is process-local by design: after a restart the worst case
// is a single repeated warning per host.
type Tracker struct {
	mu     sync.Mutex
	warned map[string]map[int]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{warned: make(map[string]map[int]struct{})}
}

// ShouldWarn reports whether a warning for the given days-to-expiry
// value is still outstanding for host, and records it as sent when so.
// Recording happens eagerly: a later delivery failure does not re-arm
// the value, mirroring the at-most-once warning contract.
func (t *Tracker) ShouldWarn(host string, days int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.warned[host]
	if !ok {
		set = make(map[int]struct{})
		t.warned[host] = set
	}
	if _, dup := set[days]; dup {
		return false
	}
	set[days] = struct{}{}
	return true
}

// Reset clears the suppression state for host, re-arming all warning
// values. Called when the host is observed outside the warning window
// (for example after the certificate was renewed).
func (t *Tracker) Reset(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.warned, host)
}
