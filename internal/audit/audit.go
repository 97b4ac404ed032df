package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Outcome classifies how an audited recovery, password or session
// operation ended.
type Outcome string

const (
	// OutcomeSucceeded: the operation took effect.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeRejected: the caller was refused, e.g. an unknown account, a
	// dead recovery link or a wrong current password.
	OutcomeRejected Outcome = "rejected"
	// OutcomeThrottled: a recovery or login limiter refused the attempt.
	OutcomeThrottled Outcome = "throttled"
	// OutcomeFailed: a backend (redis, repository, mailer) broke.
	OutcomeFailed Outcome = "failed"
)

// Event records one outcome. Events never carry passwords, recovery tokens
// or hashes; Code is a stable label and Details holds non-secret context.
type Event struct {
	Time      time.Time         `json:"time"`
	Action    string            `json:"action"`
	Outcome   Outcome           `json:"outcome"`
	Name      string            `json:"name,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(context.Context, Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) {
	if f != nil {
		f(ctx, event)
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(nil)

// ByOutcome forwards each event to the sink registered for its outcome.
// Outcomes without an entry are dropped.
type ByOutcome map[Outcome]Sink

func (m ByOutcome) Emit(ctx context.Context, event Event) {
	if sink, ok := m[event.Outcome]; ok && sink != nil {
		sink.Emit(ctx, event)
	}
}

// Tee forwards every event to each sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, event Event) {
		for _, sink := range sinks {
			if sink != nil {
				sink.Emit(ctx, event)
			}
		}
	})
}

// Chan hands events to a reader over a buffered channel. Emit blocks while
// the buffer is full unless ctx ends first.
type Chan struct {
	events chan Event
}

func NewChan(buffer int) *Chan {
	return &Chan{events: make(chan Event, max(buffer, 1))}
}

func (c *Chan) Emit(ctx context.Context, event Event) {
	select {
	case c.events <- event:
	case <-ctx.Done():
	}
}

func (c *Chan) Events() <-chan Event {
	return c.events
}

// JSONLines encodes each event as one JSON document per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLines(w io.Writer) *JSONLines {
	if w == nil {
		w = io.Discard
	}
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Emit(_ context.Context, event Event) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	// Encode appends the newline; a failed write only loses this line.
	_ = j.enc.Encode(event)
}
