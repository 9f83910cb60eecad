package ticket

import "sync"

// Handle is a shared, lock-guarded reference to one stored ticket. The store
// and every holder point at the same Handle; it stays valid for as long as any
// of them keeps it. Each ticket has its own lock, so operations on different
// tickets never contend.
//
// sync.RWMutex blocks new readers while a writer is waiting, so a steady
// stream of readers cannot starve an Update.
type Handle struct {
	id TicketID

	mu     sync.RWMutex
	ticket *Ticket
}

// NewHandle takes ownership of t. t must already carry its id.
func NewHandle(t *Ticket) *Handle {
	return &Handle{id: t.ID(), ticket: t}
}

// ID does not take the lock; a ticket's id never changes.
func (h *Handle) ID() TicketID {
	return h.id
}

// View runs fn with shared read access. fn must not mutate t or retain it.
func (h *Handle) View(fn func(t *Ticket)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn(h.ticket)
}

// Update runs fn with exclusive access. Readers see either the state before
// fn or after it, never a partial write.
func (h *Handle) Update(fn func(t *Ticket) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.ticket)
}

// Apply is Update with a validated patch.
func (h *Handle) Apply(p TicketPatch) error {
	return h.Update(func(t *Ticket) error {
		return t.Apply(p)
	})
}

// Snapshot returns an owned copy taken under the read lock.
func (h *Handle) Snapshot() *Ticket {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ticket.Clone()
}
