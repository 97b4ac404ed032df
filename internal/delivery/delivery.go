// Package delivery sends recovery mail off the request path.
//
// A request that issues a recovery token only enqueues the message; the HTTP
// response never waits on, or reflects, the outcome of the SMTP exchange.
package delivery

import (
	"context"
	"time"

	"github.com/MrEthical07/goRecover/internal/queue"
	"github.com/MrEthical07/goRecover/mail"
)

type Config struct {
	BufferSize  int
	DropIfFull  bool
	SendTimeout time.Duration
}

// Result reports the outcome of one delivery attempt.
type Result struct {
	Message mail.Message
	Err     error
}

type Dispatcher struct {
	q *queue.Queue[mail.Message]
}

// NewDispatcher starts a worker that sends through mailer and reports every
// attempt to onResult, which may be nil.
func NewDispatcher(cfg Config, mailer mail.Mailer, onResult func(Result)) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if onResult == nil {
		onResult = func(Result) {}
	}

	send := func(_ context.Context, msg mail.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.SendTimeout)
		defer cancel()
		onResult(Result{Message: msg, Err: mailer.Send(ctx, msg)})
	}

	return &Dispatcher{
		q: queue.New(queue.Config{BufferSize: cfg.BufferSize, DropIfFull: cfg.DropIfFull}, send),
	}
}

// Enqueue reports whether msg was accepted for delivery.
func (d *Dispatcher) Enqueue(ctx context.Context, msg mail.Message) bool {
	if d == nil {
		return false
	}
	return d.q.Enqueue(ctx, msg)
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
