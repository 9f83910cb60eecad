package valueobjects

import (
	"fmt"
	"strings"
)

// StatusKind is the tag of a Status.
type StatusKind string

const (
	StatusToDo       StatusKind = "todo"
	StatusInProgress StatusKind = "in_progress"
	StatusDone       StatusKind = "done"
)

var validStatusKinds = map[StatusKind]bool{
	StatusToDo:       true,
	StatusInProgress: true,
	StatusDone:       true,
}

// Status is one of ToDo, InProgress{AssignedTo} or Done. Only InProgress
// carries data. The zero value is not a valid status.
type Status struct {
	kind       StatusKind
	assignedTo string
}

func ToDo() Status {
	return Status{kind: StatusToDo}
}

// InProgress returns an in-progress status assigned to assignee.
func InProgress(assignee string) Status {
	return Status{kind: StatusInProgress, assignedTo: assignee}
}

func Done() Status {
	return Status{kind: StatusDone}
}

func (s Status) Kind() StatusKind {
	return s.kind
}

// AssignedTo returns the assignee and true for InProgress, "" and false otherwise.
func (s Status) AssignedTo() (string, bool) {
	if s.kind != StatusInProgress {
		return "", false
	}
	return s.assignedTo, true
}

func (s Status) IsValid() bool {
	if !validStatusKinds[s.kind] {
		return false
	}
	if s.kind == StatusInProgress {
		return strings.TrimSpace(s.assignedTo) != ""
	}
	return s.assignedTo == ""
}

func (s Status) IsToDo() bool {
	return s.kind == StatusToDo
}

func (s Status) IsInProgress() bool {
	return s.kind == StatusInProgress
}

func (s Status) IsDone() bool {
	return s.kind == StatusDone
}

func (s Status) String() string {
	switch s.kind {
	case StatusToDo:
		return "To-Do"
	case StatusInProgress:
		return fmt.Sprintf("In Progress (%s)", s.assignedTo)
	case StatusDone:
		return "Done"
	default:
		return fmt.Sprintf("invalid(%s)", string(s.kind))
	}
}

// ParseStatusKind parses a status name case-insensitively. Accepted spellings:
// "todo", "to-do", "inprogress", "in_progress", "in progress", "done".
func ParseStatusKind(s string) (StatusKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo", "to-do", "to_do":
		return StatusToDo, nil
	case "inprogress", "in_progress", "in progress", "in-progress":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	default:
		return "", fmt.Errorf("invalid ticket status: %s", s)
	}
}

// ParseStatus parses a status that carries no data. In-progress needs an
// assignee, use ParseStatusWithAssignee for it.
func ParseStatus(s string) (Status, error) {
	return ParseStatusWithAssignee(s, "")
}

// ParseStatusWithAssignee parses s and attaches assignee when s names the in-progress status.
func ParseStatusWithAssignee(s, assignee string) (Status, error) {
	kind, err := ParseStatusKind(s)
	if err != nil {
		return Status{}, err
	}

	var st Status
	switch kind {
	case StatusToDo:
		st = ToDo()
	case StatusInProgress:
		st = InProgress(assignee)
	case StatusDone:
		st = Done()
	}

	if !st.IsValid() {
		return Status{}, fmt.Errorf("in-progress status requires an assignee")
	}
	return st, nil
}
