// Package connectivity tracks whether the persistent Slack session is usable.
package connectivity

import (
	"sync/atomic"
	"time"
)

// State is a lifecycle state of the persistent session.
type State string

const (
	// StateIdle is the state before the session runner has reported anything.
	StateIdle          State = "idle"
	StateConnecting    State = "connecting"
	StateAuthenticated State = "authenticated"
	StateDisconnecting State = "disconnecting"
	StateReconnecting  State = "reconnecting"
	StateError         State = "error"
)

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	State     State     `json:"state"`
	Connected bool      `json:"connected"`
	ChangedAt time.Time `json:"changed_at"`
}

// Tracker holds the process-wide connectivity flag. Apply has a single caller,
// the session runner; readers may call Connected from any goroutine.
type Tracker struct {
	snap atomic.Pointer[Snapshot]
	now  func() time.Time
}

// NewTracker returns a tracker in the disconnected state.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.snap.Store(&Snapshot{State: StateIdle})
	return t
}

// Apply records a lifecycle transition. connected is true only for StateAuthenticated.
func (t *Tracker) Apply(s State) Snapshot {
	next := &Snapshot{
		State:     s,
		Connected: s == StateAuthenticated,
		ChangedAt: t.now(),
	}
	t.snap.Store(next)
	return *next
}

// Connected reports whether the session is currently authenticated.
func (t *Tracker) Connected() bool {
	return t.snap.Load().Connected
}

// State returns the last applied lifecycle state.
func (t *Tracker) State() State {
	return t.snap.Load().State
}

// Snapshot returns the current state and connectivity together.
func (t *Tracker) Snapshot() Snapshot {
	return *t.snap.Load()
}
