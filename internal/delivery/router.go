// Package delivery relays rendered messages to Slack with a single fallback.
//
// A delivery is an ordered plan of at most two attempts: the persistent session
// when it is authenticated, then the incoming webhook. The first success ends
// the plan; the webhook is never attempted twice for one event.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/youmna-rabie/mcp-relay/internal/metrics"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// DefaultSessionTimeout bounds the session attempt so a hung client cannot
// hold back the fallback.
const DefaultSessionTimeout = 5 * time.Second

// Channel is an outbound destination for rendered messages.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg types.Message) error
}

// Connectivity reports whether the persistent session is usable.
type Connectivity interface {
	Connected() bool
}

// Attempt is one outbound call made while delivering an event.
type Attempt struct {
	Channel  string        `json:"channel"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Result describes the outcome of one delivery.
type Result struct {
	Delivered bool
	Channel   string
	Attempts  []Attempt
}

// FellBack reports whether the primary path was tried and failed before the
// message went out on the fallback.
func (r Result) FellBack() bool {
	return r.Delivered && len(r.Attempts) > 1
}

// Err joins the errors of all failed attempts.
func (r Result) Err() error {
	var errs []error
	for _, a := range r.Attempts {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Channel, a.Err))
		}
	}
	return errors.Join(errs...)
}

type step struct {
	ch      Channel
	timeout time.Duration
}

// Router picks the delivery path for each message.
type Router struct {
	session        Channel
	webhook        Channel
	state          Connectivity
	sessionTimeout time.Duration
	logger         *slog.Logger
}

// NewRouter creates a Router. session may be nil when no persistent session is
// configured; every delivery then goes straight to webhook.
func NewRouter(session, webhook Channel, state Connectivity, sessionTimeout time.Duration, logger *slog.Logger) *Router {
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	return &Router{
		session:        session,
		webhook:        webhook,
		state:          state,
		sessionTimeout: sessionTimeout,
		logger:         logger,
	}
}

// Plan returns the ordered channels a delivery would try for the given
// connectivity. It never holds more than two entries.
func (r *Router) Plan(connected bool) []Channel {
	steps := r.plan(connected)
	out := make([]Channel, len(steps))
	for i, s := range steps {
		out[i] = s.ch
	}
	return out
}

func (r *Router) plan(connected bool) []step {
	if connected && r.session != nil {
		return []step{
			{ch: r.session, timeout: r.sessionTimeout},
			{ch: r.webhook},
		}
	}
	return []step{{ch: r.webhook}}
}

// Deliver sends msg for ev. Connectivity is read once; a state change during
// the delivery does not alter its plan. Failures are logged, not returned.
func (r *Router) Deliver(ctx context.Context, ev types.InboundEvent, msg types.Message) Result {
	connected := r.state != nil && r.state.Connected()
	plan := r.plan(connected)

	res := Result{Attempts: make([]Attempt, 0, len(plan))}
	for i, s := range plan {
		att := r.attempt(ctx, s, msg)
		res.Attempts = append(res.Attempts, att)

		if att.Err == nil {
			res.Delivered = true
			res.Channel = att.Channel
			r.logger.Info("event delivered",
				"event_id", ev.ID,
				"event_type", ev.EventType,
				"channel", att.Channel,
				"attempts", len(res.Attempts),
			)
			return res
		}

		if i < len(plan)-1 {
			r.logger.Warn("primary delivery failed, falling back",
				"event_id", ev.ID,
				"event_type", ev.EventType,
				"channel", att.Channel,
				"error", att.Err,
			)
		}
	}

	r.logger.Error("delivery failed on all channels",
		"event_id", ev.ID,
		"event_type", ev.EventType,
		"event_date_time", ev.EventDateTime,
		"session_connected", connected,
		"error", res.Err(),
	)
	return res
}

func (r *Router) attempt(ctx context.Context, s step, msg types.Message) Attempt {
	if s.ch == nil {
		return Attempt{Channel: "none", Err: errors.New("no channel configured")}
	}

	name := s.ch.Name()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.ch.Send(ctx, msg)
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.DeliveryAttempts.WithLabelValues(name, result).Inc()
	metrics.DeliveryDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	return Attempt{Channel: name, Err: err, Duration: elapsed}
}
