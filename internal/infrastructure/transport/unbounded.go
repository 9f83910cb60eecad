package transport

import (
	"context"
	"sync"
)

// unboundedQueue grows without limit. It suits tests and light load; under
// sustained overload memory grows with the backlog.
type unboundedQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// notify has room for one wake-up; the single receiver re-checks items
	// after every wake-up, so coalesced signals are harmless.
	notify chan struct{}
}

func newUnbounded[T any]() *unboundedQueue[T] {
	return &unboundedQueue[T]{notify: make(chan struct{}, 1)}
}

func (q *unboundedQueue[T]) Send(_ context.Context, v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.wake()
	return nil
}

func (q *unboundedQueue[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, ErrClosed
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (q *unboundedQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *unboundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *unboundedQueue[T]) Cap() int {
	return 0
}

func (q *unboundedQueue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
