package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/youmna-rabie/mcp-relay/internal/journal"
	"github.com/youmna-rabie/mcp-relay/internal/metrics"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

// RenderFunc turns an event into a message.
type RenderFunc func(types.InboundEvent) (types.Message, error)

// Deliverer sends one rendered message.
type Deliverer interface {
	Deliver(ctx context.Context, ev types.InboundEvent, msg types.Message) Result
}

// Dispatcher runs render and delivery on a detached goroutine per event. Its
// outcome is visible only through logs, metrics and the journal.
type Dispatcher struct {
	router  Deliverer
	render  RenderFunc
	journal journal.Store
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. store may be nil.
func NewDispatcher(router Deliverer, render RenderFunc, store journal.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		router:  router,
		render:  render,
		journal: store,
		logger:  logger,
	}
}

// Dispatch starts delivering ev and returns immediately. ctx values are kept
// but its cancellation is ignored, so the caller's request may finish first.
func (d *Dispatcher) Dispatch(ctx context.Context, ev types.InboundEvent) {
	ctx = context.WithoutCancel(ctx)

	recID := uuid.New()
	if d.journal != nil {
		err := d.journal.Save(journal.Record{
			ID:            recID,
			EventID:       ev.ID,
			EventType:     ev.EventType,
			EventDateTime: ev.EventDateTime,
			Status:        types.DeliveryStatusPending,
		})
		if err != nil {
			d.logger.Debug("journal save failed", "event_id", ev.ID, "error", err)
		}
	}

	d.wg.Add(1)
	metrics.DeliveriesInFlight.Inc()
	go func() {
		defer d.wg.Done()
		defer metrics.DeliveriesInFlight.Dec()

		out := d.process(ctx, ev)
		metrics.DeliveriesTotal.WithLabelValues(string(out.Status)).Inc()
		if d.journal != nil {
			if err := d.journal.Finish(recID, out); err != nil {
				d.logger.Debug("journal record gone before finish", "event_id", ev.ID, "error", err)
			}
		}
	}()
}

// Wait blocks until every dispatched event has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) process(ctx context.Context, ev types.InboundEvent) (out journal.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("delivery panicked",
				"event_id", ev.ID,
				"event_type", ev.EventType,
				"panic", rec,
			)
			out = journal.Outcome{Status: types.DeliveryStatusFailed, Error: fmt.Sprint(rec)}
		}
	}()

	msg, err := d.render(ev)
	if err != nil {
		d.logger.Error("render failed",
			"event_id", ev.ID,
			"event_type", ev.EventType,
			"event_date_time", ev.EventDateTime,
			"error", err,
		)
		return journal.Outcome{Status: types.DeliveryStatusRenderFailed, Error: err.Error()}
	}

	res := d.router.Deliver(ctx, ev, msg)
	out = journal.Outcome{Channel: res.Channel, Attempts: len(res.Attempts)}
	switch {
	case res.FellBack():
		out.Status = types.DeliveryStatusFellBack
		out.Error = res.Err().Error()
	case res.Delivered:
		out.Status = types.DeliveryStatusDelivered
	default:
		out.Status = types.DeliveryStatusFailed
		if err := res.Err(); err != nil {
			out.Error = err.Error()
		}
	}
	return out
}
