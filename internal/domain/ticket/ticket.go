package ticket

import (
	"fmt"

	vo "github.com/orris-inc/ticketstore/internal/domain/ticket/valueobjects"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
	"github.com/orris-inc/ticketstore/internal/shared/utils"
)

// Length limits are in bytes.
const (
	TitleMaxLength       = 50
	DescriptionMaxLength = 500
)

var (
	titleRules       = fmt.Sprintf("required,maxbytes=%d", TitleMaxLength)
	descriptionRules = fmt.Sprintf("required,maxbytes=%d", DescriptionMaxLength)
)

// TicketID is assigned by the store, starting at 1. It is never reused.
type TicketID uint64

func (id TicketID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// Ticket has an immutable identity once stored; title, description and status
// change only through the validated setters.
type Ticket struct {
	id          TicketID
	title       string
	description string
	status      vo.Status
}

// NewTicket validates its inputs with the same rules as the setters.
func NewTicket(title, description string, status vo.Status) (*Ticket, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	return &Ticket{
		title:       title,
		description: description,
		status:      status,
	}, nil
}

func (t *Ticket) ID() TicketID {
	return t.id
}

func (t *Ticket) Title() string {
	return t.title
}

func (t *Ticket) Description() string {
	return t.description
}

func (t *Ticket) Status() vo.Status {
	return t.status
}

// SetID assigns the store id. It can be set once, to a non-zero value.
func (t *Ticket) SetID(id TicketID) error {
	if t.id != 0 {
		return fmt.Errorf("ticket ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("ticket ID cannot be zero")
	}
	t.id = id
	return nil
}

func (t *Ticket) SetTitle(title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	t.title = title
	return nil
}

func (t *Ticket) SetDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	t.description = description
	return nil
}

func (t *Ticket) SetStatus(status vo.Status) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	t.status = status
	return nil
}

// Clone returns an owned copy. All fields are values, so a struct copy is deep.
func (t *Ticket) Clone() *Ticket {
	c := *t
	return &c
}

// TicketPatch changes the non-nil fields of a ticket.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *vo.Status
}

func (p TicketPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Validate checks every set field without touching a ticket.
func (p TicketPatch) Validate() error {
	if p.IsEmpty() {
		return errors.NewValidationError("at least one field must be provided for update")
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Status != nil {
		if err := validateStatus(*p.Status); err != nil {
			return err
		}
	}
	return nil
}

// Apply validates the whole patch first, so a rejected patch leaves t untouched.
func (t *Ticket) Apply(p TicketPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Title != nil {
		t.title = *p.Title
	}
	if p.Description != nil {
		t.description = *p.Description
	}
	if p.Status != nil {
		t.status = *p.Status
	}
	return nil
}

func validateTitle(title string) error {
	return utils.ValidateVar("title", title, titleRules)
}

func validateDescription(description string) error {
	return utils.ValidateVar("description", description, descriptionRules)
}

func validateStatus(status vo.Status) error {
	if !status.IsValid() {
		return errors.NewValidationError("Validation failed", fmt.Sprintf("invalid status: %s", status))
	}
	return nil
}
