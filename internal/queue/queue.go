// Package queue is the single-worker buffered relay shared by the audit
// pipeline and recovery mail delivery.
//
// A Queue owns one goroutine. Enqueue either drops (DropIfFull) or blocks
// until space or the caller's context. Close drains whatever is already
// buffered before returning; an item Enqueue accepted is always handled.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls buffering behavior.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Queue forwards items to handle on a background goroutine.
type Queue[T any] struct {
	cfg       Config
	handle    func(context.Context, T)
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders sends against Close: senders hold it shared, Close holds it
	// exclusively while flipping closed, so no send lands after the drain.
	mu     sync.RWMutex
	closed bool
}

func New[T any](cfg Config, handle func(context.Context, T)) *Queue[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if handle == nil {
		handle = func(context.Context, T) {}
	}

	q := &Queue[T]{
		cfg:    cfg,
		handle: handle,
		ch:     make(chan T, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

func (q *Queue[T]) run() {
	defer q.wg.Done()

	for {
		select {
		case item := <-q.ch:
			q.handle(context.Background(), item)
		case <-q.done:
			for {
				select {
				case item := <-q.ch:
					q.handle(context.Background(), item)
				default:
					return
				}
			}
		}
	}
}

// Enqueue reports whether item was accepted.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) bool {
	if q == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	if q.cfg.DropIfFull {
		select {
		case q.ch <- item:
			return true
		default:
			q.dropped.Add(1)
			return false
		}
	}

	select {
	case q.ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting items and waits for buffered ones to be handled.
// It is safe to call more than once.
func (q *Queue[T]) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.done)
		q.mu.Unlock()
		q.wg.Wait()
	})
}

func (q *Queue[T]) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
