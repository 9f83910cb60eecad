package ticket

import (
	vo "github.com/orris-inc/ticketstore/internal/domain/ticket/valueobjects"
	"github.com/orris-inc/ticketstore/internal/shared/utils"
)

// TicketDraft is unvalidated caller input. It has no id and no status.
type TicketDraft struct {
	Title       string `json:"title" validate:"required,maxbytes=50"`
	Description string `json:"description" validate:"required,maxbytes=500"`
}

// Builder turns a draft into a ticket or reports why it cannot. The store
// calls it once per insert and returns its error to the caller unchanged.
type Builder interface {
	Build(draft TicketDraft) (*Ticket, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(draft TicketDraft) (*Ticket, error)

func (f BuilderFunc) Build(draft TicketDraft) (*Ticket, error) {
	return f(draft)
}

type defaultBuilder struct{}

// NewBuilder returns the default builder: struct-tag validation of the draft,
// new tickets start in ToDo.
func NewBuilder() Builder {
	return defaultBuilder{}
}

func (defaultBuilder) Build(draft TicketDraft) (*Ticket, error) {
	if err := utils.ValidateStruct(draft); err != nil {
		return nil, err
	}
	return &Ticket{
		title:       draft.Title,
		description: draft.Description,
		status:      vo.ToDo(),
	}, nil
}
