package svc

import (
	"context"
	"sync"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"

	"go.uber.org/zap"
)

// Event describes one completed custody transition. Events are advisory;
// custody state never depends on their delivery.
type Event struct {
	Type      string          `json:"Type"`
	RecordID  uint64          `json:"RecordID"`
	Kind      string          `json:"Kind"`
	Status    string          `json:"Status"`
	Actor     string          `json:"Actor,omitempty"`
	Amount    uint64          `json:"Amount,omitempty"`
	Timestamp state.Timestamp `json:"Timestamp"`
}

// Event types.
const (
	EventCreated   = "created"
	EventFunded    = "funded"
	EventBidPlaced = "bid_placed"
	EventTicket    = "ticket_sold"
	EventClaimed   = "claimed"
	EventDisputed  = "disputed"
	EventDrawn     = "drawn"
	EventSettled   = "settled"
)

// EventSink receives batches of events from the dispatcher. Delivery
// failures are logged and the batch is dropped; sinks that need stronger
// guarantees keep their own journal.
type EventSink interface {
	Deliver(ctx context.Context, events []Event) error
}

// Dispatcher buffers events emitted by transitions and hands them to the
// sink in batches. Flushing runs on the scheduler, off the transition path,
// so a slow sink never holds a record lock.
type Dispatcher struct {
	log  *zap.Logger
	sink EventSink

	mu      sync.Mutex
	pending []Event
}

func NewDispatcher(log *zap.Logger, sink EventSink) *Dispatcher {
	return &Dispatcher{log: log, sink: sink}
}

// Emit queues one event. Never blocks on delivery.
func (d *Dispatcher) Emit(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, e)
}

// Flush delivers everything queued so far.
func (d *Dispatcher) Flush(ctx context.Context) {
	d.mu.Lock()
	batch := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(batch) == 0 || d.sink == nil {
		return
	}

	if err := d.sink.Deliver(ctx, batch); err != nil {
		d.log.Warn("Event delivery failed, batch dropped",
			zap.Int("events", len(batch)),
			zap.Error(err))
	}
}

// Run implements scheduler.PeriodicProcessInterface.
func (d *Dispatcher) Run(ctx context.Context) {
	d.Flush(ctx)
}

// Pending returns the number of undelivered events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// LogSink writes events to the structured log. The default sink when no
// external consumer is configured.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Deliver(ctx context.Context, events []Event) error {
	for _, e := range events {
		s.Log.Info("custody event",
			zap.String("type", e.Type),
			zap.Uint64("record_id", e.RecordID),
			zap.String("kind", e.Kind),
			zap.String("status", e.Status),
			zap.String("actor", e.Actor),
			zap.Uint64("amount", e.Amount))
	}
	return nil
}
