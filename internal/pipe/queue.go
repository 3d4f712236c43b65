// Package pipe hands values from producers to a single consumer without ever
// blocking the producer.
//
// A Queue is unbounded: Send appends and returns immediately no matter how far
// behind the consumer is. When the consumer goes away it calls Detach, after
// which every Send reports ErrDisconnected and the value is dropped.
package pipe

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDisconnected is returned by Send once the consumer has detached.
	ErrDisconnected = errors.New("pipe: consumer disconnected")

	// ErrClosed is returned by Send after the producer side was closed.
	ErrClosed = errors.New("pipe: queue closed")
)

// Sink is the producer end of a hand-off.
type Sink[T any] interface {
	Send(v T) error
}

// Queue is an unbounded multi-producer, single-consumer FIFO.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	closed   bool
	detached bool
	ready    chan struct{}
	sent     uint64
	dropped  uint64
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Send enqueues v. It never blocks.
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	switch {
	case q.detached:
		q.dropped++
		q.mu.Unlock()
		return ErrDisconnected
	case q.closed:
		q.dropped++
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.sent++
	q.mu.Unlock()

	q.signal()
	return nil
}

// Close marks the producer side finished. Items already queued are still
// delivered; Recv reports false once they are drained.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Detach is called by the consumer when it stops receiving. Pending items
// are discarded and later sends fail with ErrDisconnected.
func (q *Queue[T]) Detach() {
	q.mu.Lock()
	q.detached = true
	q.dropped += uint64(len(q.items))
	q.items = nil
	q.mu.Unlock()
	q.signal()
}

// Recv blocks until an item is available, the queue is closed and drained,
// or ctx is done.
func (q *Queue[T]) Recv(ctx context.Context) (T, bool) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, true
		}
		if q.closed || q.detached {
			q.mu.Unlock()
			return zero, false
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return zero, false
		}
	}
}

// Len is the number of queued, undelivered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns the number of accepted and dropped sends.
func (q *Queue[T]) Stats() (sent, dropped uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sent, q.dropped
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// ChanSink adapts a plain channel to Sink with a non-blocking send. A full
// channel drops the value and reports ErrDisconnected.
type ChanSink[T any] chan T

func (c ChanSink[T]) Send(v T) error {
	select {
	case c <- v:
		return nil
	default:
		return ErrDisconnected
	}
}

// Discard is a Sink that accepts and forgets every value.
type Discard[T any] struct{}

func (Discard[T]) Send(T) error { return nil }
