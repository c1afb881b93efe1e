package channel

import (
	"context"
	"log/slog"
	"time"

	"github.com/slack-go/slack/socketmode"
	"github.com/youmna-rabie/mcp-relay/internal/connectivity"
	"github.com/youmna-rabie/mcp-relay/internal/metrics"
)

// Acker acknowledges Socket Mode envelopes.
type Acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

const (
	defaultRestartInitial = time.Second
	defaultRestartMax     = 2 * time.Minute
)

// RestartBackoff doubles the wait between session restarts up to Max.
type RestartBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

// NextDelay returns the wait before restart number attempt (1-based).
func (b RestartBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := b.Initial
	if initial <= 0 {
		initial = defaultRestartInitial
	}
	max := b.Max
	if max <= 0 {
		max = defaultRestartMax
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return min(delay, max)
}

// SocketRunner keeps the Socket Mode session alive and reports its lifecycle
// to the connectivity tracker. It is the tracker's only writer.
type SocketRunner struct {
	client  *socketmode.Client
	tracker *connectivity.Tracker
	logger  *slog.Logger
	backoff RestartBackoff

	authenticatedOnce bool
	// authenticated is reset per session attempt; set by handle.
	authenticated bool
}

// NewSocketRunner creates a runner for an already configured Socket Mode client.
func NewSocketRunner(client *socketmode.Client, tracker *connectivity.Tracker, logger *slog.Logger) *SocketRunner {
	return &SocketRunner{client: client, tracker: tracker, logger: logger}
}

// Run keeps the session up until ctx is cancelled. When the client gives up,
// for example on invalid_auth, the tracker moves to error and the session is
// restarted after a backoff.
func (r *SocketRunner) Run(ctx context.Context) {
	attempt := 0
	for {
		err := r.runOnce(ctx)
		if ctx.Err() != nil {
			r.apply(connectivity.StateDisconnecting)
			return
		}

		if r.authenticated {
			attempt = 0
		}
		attempt++
		r.apply(connectivity.StateError)

		wait := r.backoff.NextDelay(attempt)
		r.logger.Error("slack session stopped, restarting",
			"error", err,
			"attempt", attempt,
			"retry_in", wait.String(),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.apply(connectivity.StateDisconnecting)
			return
		case <-timer.C:
		}
	}
}

// runOnce runs one client session and returns once both the client and the
// event consumer have stopped.
func (r *SocketRunner) runOnce(ctx context.Context) error {
	r.authenticated = false

	consumeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.consume(consumeCtx, r.client.Events, r.client)
	}()

	err := r.client.RunContext(ctx)
	cancel()
	<-done
	return err
}

func (r *SocketRunner) consume(ctx context.Context, events <-chan socketmode.Event, acker Acker) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			r.handle(evt, acker)
		}
	}
}

func (r *SocketRunner) handle(evt socketmode.Event, acker Acker) {
	if state, ok := StateFor(evt.Type, r.authenticatedOnce); ok {
		if state == connectivity.StateAuthenticated {
			r.authenticatedOnce = true
			r.authenticated = true
		}
		r.apply(state)
		if state == connectivity.StateError {
			r.logger.Warn("slack session error", "event", evt.Type, "data", evt.Data)
		}
	}

	// Every envelope that carries a request must be acked or Slack redelivers it.
	if evt.Request != nil && acker != nil {
		acker.Ack(*evt.Request)
	}
}

func (r *SocketRunner) apply(state connectivity.State) {
	prev := r.tracker.State()
	snap := r.tracker.Apply(state)
	metrics.SessionTransitions.WithLabelValues(string(state)).Inc()
	if snap.Connected {
		metrics.SessionConnected.Set(1)
	} else {
		metrics.SessionConnected.Set(0)
	}
	if prev != state {
		r.logger.Info("slack session state changed", "from", prev, "to", state)
	}
}

// StateFor maps a Socket Mode event onto a session lifecycle state. Events
// that say nothing about the connection report false.
func StateFor(t socketmode.EventType, authenticatedBefore bool) (connectivity.State, bool) {
	switch t {
	case socketmode.EventTypeConnecting:
		if authenticatedBefore {
			return connectivity.StateReconnecting, true
		}
		return connectivity.StateConnecting, true
	case socketmode.EventTypeConnected, socketmode.EventTypeHello:
		return connectivity.StateAuthenticated, true
	case socketmode.EventTypeDisconnect:
		return connectivity.StateDisconnecting, true
	case socketmode.EventTypeConnectionError,
		socketmode.EventTypeInvalidAuth,
		socketmode.EventTypeIncomingError:
		return connectivity.StateError, true
	default:
		return "", false
	}
}
