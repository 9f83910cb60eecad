package ticketstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	"github.com/orris-inc/ticketstore/internal/infrastructure/transport"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
)

// conn is shared by every clone of a Client.
type conn struct {
	queue transport.Queue[command]
	done  <-chan struct{}
	refs  atomic.Int64
}

// Client is a handle on a running ticket store. It is safe for concurrent
// use; Clone gives another goroutine its own handle. The store shuts down
// once every handle has been closed.
type Client struct {
	conn   *conn
	closed atomic.Bool
}

func newClient(queue transport.Queue[command], done <-chan struct{}) *Client {
	c := &conn{queue: queue, done: done}
	c.refs.Store(1)
	return &Client{conn: c}
}

// Clone returns a new handle on the same store. Cloning a closed handle
// yields a closed handle.
func (c *Client) Clone() *Client {
	clone := &Client{conn: c.conn}
	if c.closed.Load() {
		clone.closed.Store(true)
		return clone
	}
	c.conn.refs.Add(1)
	return clone
}

// Close releases this handle. Closing the last handle closes the transport;
// the actor finishes what is already queued and exits. Close is idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.conn.refs.Add(-1) == 0 {
		c.conn.queue.Close()
	}
	return nil
}

// Done is closed when the actor has exited.
func (c *Client) Done() <-chan struct{} {
	return c.conn.done
}

// Insert stores a new ticket built from draft and returns its id.
func (c *Client) Insert(ctx context.Context, draft ticket.TicketDraft) (ticket.TicketID, error) {
	return request(ctx, c, func(reply chan result[ticket.TicketID]) command {
		return &insertCommand{draft: draft, reply: reply}
	})
}

// Get returns a snapshot of the ticket, or nil if id is unknown.
func (c *Client) Get(ctx context.Context, id ticket.TicketID) (*ticket.Ticket, error) {
	return request(ctx, c, func(reply chan result[*ticket.Ticket]) command {
		return &getCommand{id: id, reply: reply}
	})
}

// GetHandle returns the shared handle for id, or nil if id is unknown.
// Reads and writes through the handle bypass the actor.
func (c *Client) GetHandle(ctx context.Context, id ticket.TicketID) (*ticket.Handle, error) {
	return request(ctx, c, func(reply chan result[*ticket.Handle]) command {
		return &getHandleCommand{id: id, reply: reply}
	})
}

// Update applies patch to the ticket with id.
func (c *Client) Update(ctx context.Context, id ticket.TicketID, patch ticket.TicketPatch) error {
	_, err := request(ctx, c, func(reply chan result[struct{}]) command {
		return &updateCommand{id: id, patch: patch, reply: reply}
	})
	return err
}

// Len returns the number of stored tickets.
func (c *Client) Len(ctx context.Context) (int, error) {
	return request(ctx, c, func(reply chan result[int]) command {
		return &lenCommand{reply: reply}
	})
}

func request[T any](ctx context.Context, c *Client, build func(chan result[T]) command) (T, error) {
	var zero T

	ch := make(chan result[T], 1)
	if err := c.send(ctx, build(ch)); err != nil {
		return zero, err
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-c.conn.done:
		// The actor may have replied just before exiting.
		select {
		case r := <-ch:
			return r.value, r.err
		default:
		}
		return zero, errors.NewDisconnectedError("ticket store stopped before replying")
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, cmd command) error {
	if c.closed.Load() {
		return errors.NewDisconnectedError("client is closed")
	}

	err := c.conn.queue.Send(ctx, cmd)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, transport.ErrFull):
		return errors.NewOverloadedError("ticket store is overloaded",
			fmt.Sprintf("capacity=%d", c.conn.queue.Cap()))
	case stderrors.Is(err, transport.ErrClosed):
		return errors.NewDisconnectedError("ticket store is not running")
	default:
		return err
	}
}
