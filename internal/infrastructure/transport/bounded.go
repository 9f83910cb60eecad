package transport

import (
	"context"
	"sync"
)

type boundedQueue[T any] struct {
	policy Policy
	ch     chan T

	// Senders hold mu.RLock while touching ch; Close takes mu.Lock before
	// closing ch, so nobody sends on a closed channel.
	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
}

func newBounded[T any](capacity int, policy Policy) *boundedQueue[T] {
	return &boundedQueue[T]{
		policy:  policy,
		ch:      make(chan T, capacity),
		closing: make(chan struct{}),
	}
}

func (q *boundedQueue[T]) Send(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case q.ch <- v:
		return nil
	default:
	}

	if q.policy == PolicyFailFast {
		return ErrFull
	}

	select {
	case q.ch <- v:
		return nil
	case <-q.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *boundedQueue[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v, ok := <-q.ch:
		if !ok {
			var zero T
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *boundedQueue[T]) Close() {
	q.closeOnce.Do(func() {
		// Wake blocked senders first so they release the read lock.
		close(q.closing)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}

func (q *boundedQueue[T]) Len() int {
	return len(q.ch)
}

func (q *boundedQueue[T]) Cap() int {
	return cap(q.ch)
}
