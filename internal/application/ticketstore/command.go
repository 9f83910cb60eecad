package ticketstore

import (
	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	"github.com/orris-inc/ticketstore/internal/infrastructure/store"
)

// result is what travels back on a reply conduit.
type result[T any] struct {
	value T
	err   error
}

// command is one request for the actor. Each variant owns a reply channel of
// capacity one, created fresh for that request; the reply type of a variant
// is part of its contract.
type command interface {
	name() string
	// execute runs against the store and sends exactly one reply.
	execute(s *store.TicketStore)
	// fail replies with err instead of a result.
	fail(err error)
}

// reply never blocks: the conduit has room for exactly one value and nobody
// else sends on it. A client that gave up simply never reads it.
func reply[T any](ch chan result[T], v T, err error) {
	select {
	case ch <- result[T]{value: v, err: err}:
	default:
	}
}

type insertCommand struct {
	draft ticket.TicketDraft
	reply chan result[ticket.TicketID]
}

func (c *insertCommand) name() string { return "insert" }

func (c *insertCommand) execute(s *store.TicketStore) {
	id, err := s.AddTicket(c.draft)
	reply(c.reply, id, err)
}

func (c *insertCommand) fail(err error) { reply(c.reply, 0, err) }

// getCommand returns an owned copy.
type getCommand struct {
	id    ticket.TicketID
	reply chan result[*ticket.Ticket]
}

func (c *getCommand) name() string { return "get" }

func (c *getCommand) execute(s *store.TicketStore) {
	t, _ := s.Snapshot(c.id)
	reply(c.reply, t, nil)
}

func (c *getCommand) fail(err error) { reply[*ticket.Ticket](c.reply, nil, err) }

// getHandleCommand returns the shared handle itself.
type getHandleCommand struct {
	id    ticket.TicketID
	reply chan result[*ticket.Handle]
}

func (c *getHandleCommand) name() string { return "get_handle" }

func (c *getHandleCommand) execute(s *store.TicketStore) {
	h, _ := s.Get(c.id)
	reply(c.reply, h, nil)
}

func (c *getHandleCommand) fail(err error) { reply[*ticket.Handle](c.reply, nil, err) }

type updateCommand struct {
	id    ticket.TicketID
	patch ticket.TicketPatch
	reply chan result[struct{}]
}

func (c *updateCommand) name() string { return "update" }

func (c *updateCommand) execute(s *store.TicketStore) {
	reply(c.reply, struct{}{}, s.Update(c.id, c.patch))
}

func (c *updateCommand) fail(err error) { reply(c.reply, struct{}{}, err) }

type lenCommand struct {
	reply chan result[int]
}

func (c *lenCommand) name() string { return "len" }

func (c *lenCommand) execute(s *store.TicketStore) {
	reply(c.reply, s.Len(), nil)
}

func (c *lenCommand) fail(err error) { reply(c.reply, 0, err) }
