package audit

import (
	"context"

	"github.com/MrEthical07/goRecover/internal/queue"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink.
type Dispatcher struct {
	q *queue.Queue[Event]
}

// NewDispatcher returns nil when auditing is disabled; a nil Dispatcher
// accepts and discards every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = Discard
	}

	return &Dispatcher{
		q: queue.New(queue.Config{BufferSize: cfg.BufferSize, DropIfFull: cfg.DropIfFull}, sink.Emit),
	}
}

func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.q.Enqueue(ctx, event)
}

func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.q.Close()
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.q.Dropped()
}
