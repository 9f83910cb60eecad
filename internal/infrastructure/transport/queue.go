// Package transport is the many-producer, single-consumer queue between store
// clients and the store actor. A queue is bounded or unbounded; a bounded
// queue either makes producers wait for room or rejects them immediately.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFull is returned by a fail-fast queue that is at capacity.
	ErrFull = errors.New("transport: queue is full")
	// ErrClosed is returned by Send after Close, and by Receive once a
	// closed queue has been drained.
	ErrClosed = errors.New("transport: queue is closed")
)

// Policy decides what a producer does when a bounded queue is full.
type Policy string

const (
	PolicyBlocking Policy = "blocking"
	PolicyFailFast Policy = "fail-fast"
)

// ParsePolicy accepts "blocking", "fail-fast" and "failfast", ignoring case.
// An empty string means blocking.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blocking", "block":
		return PolicyBlocking, nil
	case "fail-fast", "failfast", "fail_fast":
		return PolicyFailFast, nil
	default:
		return "", fmt.Errorf("invalid backpressure policy: %q", s)
	}
}

// Config selects the queue shape. Capacity 0 means unbounded, in which case
// Policy is ignored.
type Config struct {
	Capacity int
	Policy   Policy
}

func (c Config) Unbounded() bool {
	return c.Capacity == 0
}

func (c Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("transport capacity cannot be negative: %d", c.Capacity)
	}
	if c.Unbounded() {
		return nil
	}
	switch c.Policy {
	case PolicyBlocking, PolicyFailFast:
		return nil
	default:
		return fmt.Errorf("invalid backpressure policy: %q", c.Policy)
	}
}

// Queue is safe for any number of concurrent senders and exactly one receiver.
// Items from one sender are received in the order that sender sent them.
type Queue[T any] interface {
	// Send enqueues v. Blocking queues wait for room until ctx ends or the
	// queue closes; fail-fast queues return ErrFull; unbounded queues never wait.
	Send(ctx context.Context, v T) error
	// Receive blocks for the next item. It returns ErrClosed only after Close
	// once every accepted item has been received.
	Receive(ctx context.Context) (T, error)
	// Close stops accepting items and wakes blocked senders. Idempotent.
	Close()
	// Len is the number of items waiting.
	Len() int
	// Cap is the capacity, 0 for unbounded.
	Cap() int
}

// New builds the queue described by cfg.
func New[T any](cfg Config) (Queue[T], error) {
	if cfg.Policy == "" {
		cfg.Policy = PolicyBlocking
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Unbounded() {
		return newUnbounded[T](), nil
	}
	return newBounded[T](cfg.Capacity, cfg.Policy), nil
}
