// Package store holds tickets in memory. A TicketStore has no locking of its
// own: exactly one goroutine, the store actor, may call it. Individual
// tickets are handed out as *ticket.Handle, which carry their own locks.
package store

import (
	"fmt"

	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
)

type TicketStore struct {
	builder ticket.Builder
	tickets map[ticket.TicketID]*ticket.Handle
	nextID  ticket.TicketID
}

func NewTicketStore(builder ticket.Builder) *TicketStore {
	if builder == nil {
		builder = ticket.NewBuilder()
	}
	return &TicketStore{
		builder: builder,
		tickets: make(map[ticket.TicketID]*ticket.Handle),
		nextID:  1,
	}
}

// AddTicket builds the draft and stores it under the next id. The builder's
// error is returned unchanged and does not consume an id.
func (s *TicketStore) AddTicket(draft ticket.TicketDraft) (ticket.TicketID, error) {
	t, err := s.builder.Build(draft)
	if err != nil {
		return 0, err
	}
	if t == nil {
		return 0, errors.NewInternalError("builder returned no ticket")
	}

	id := s.nextID
	if err := t.SetID(id); err != nil {
		return 0, errors.NewInternalError("failed to assign ticket id", err.Error())
	}
	s.nextID++
	s.tickets[id] = ticket.NewHandle(t)

	return id, nil
}

// Get returns the shared handle for id.
func (s *TicketStore) Get(id ticket.TicketID) (*ticket.Handle, bool) {
	h, ok := s.tickets[id]
	return h, ok
}

// Snapshot returns an owned copy of the ticket with id.
func (s *TicketStore) Snapshot(id ticket.TicketID) (*ticket.Ticket, bool) {
	h, ok := s.tickets[id]
	if !ok {
		return nil, false
	}
	return h.Snapshot(), true
}

// Update applies patch under the ticket's own write lock, since holders of
// the handle may be reading it concurrently.
func (s *TicketStore) Update(id ticket.TicketID, patch ticket.TicketPatch) error {
	h, ok := s.tickets[id]
	if !ok {
		return errors.NewNotFoundError("ticket not found", fmt.Sprintf("id=%d", uint64(id)))
	}
	return h.Apply(patch)
}

func (s *TicketStore) Len() int {
	return len(s.tickets)
}
