package connectivity

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_InitiallyDisconnected(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.Connected())
	assert.Equal(t, StateIdle, tr.State())
}

func TestTracker_OnlyAuthenticatedIsConnected(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateConnecting, false},
		{StateAuthenticated, true},
		{StateDisconnecting, false},
		{StateReconnecting, false},
		{StateError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			tr := NewTracker()
			snap := tr.Apply(tt.state)
			assert.Equal(t, tt.want, snap.Connected)
			assert.Equal(t, tt.want, tr.Connected())
			assert.Equal(t, tt.state, tr.State())
		})
	}
}

func TestTracker_LifecycleSequence(t *testing.T) {
	tr := NewTracker()

	tr.Apply(StateConnecting)
	assert.False(t, tr.Connected())
	tr.Apply(StateAuthenticated)
	assert.True(t, tr.Connected())
	tr.Apply(StateDisconnecting)
	assert.False(t, tr.Connected())
	tr.Apply(StateReconnecting)
	assert.False(t, tr.Connected())
	tr.Apply(StateAuthenticated)
	assert.True(t, tr.Connected())
	tr.Apply(StateError)
	assert.False(t, tr.Connected())
}

func TestTracker_SnapshotTimestamp(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return fixed }

	tr.Apply(StateAuthenticated)
	snap := tr.Snapshot()
	assert.Equal(t, fixed, snap.ChangedAt)
	assert.True(t, snap.Connected)
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				tr.Apply(StateAuthenticated)
			} else {
				tr.Apply(StateReconnecting)
			}
		}
	}()

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := tr.Snapshot()
				assert.Equal(t, snap.State == StateAuthenticated, snap.Connected)
			}
		}()
	}
	wg.Wait()
}
