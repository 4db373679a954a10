package deadline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lexdesk/lexdesk/internal/calendar"
)

// Status enumerates deadline lifecycle states. Completed and Missed are
// terminal. An extended deadline stays Pending; the extension is recorded by
// OriginalDueDate being set.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusMissed    Status = "MISSED"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusMissed
}

// Priority enumerates deadline priorities.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityNormal   Priority = "NORMAL"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// ParsePriority validates a raw priority value, defaulting empty to NORMAL.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(raw) {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return Priority(raw), nil
	}
	return "", ErrInvalidPriority
}

// Lifecycle errors. State-violating calls fail with these rather than
// silently doing nothing; they represent legal-process decisions that a
// human must see.
var (
	ErrNotFound           = errors.New("deadline: not found")
	ErrAlreadyTerminal    = errors.New("deadline: already completed or missed")
	ErrPastDueDate        = errors.New("deadline: new due date is in the past")
	ErrEmptyJustification = errors.New("deadline: justification required")
	ErrInvalidPriority    = errors.New("deadline: invalid priority")
	ErrInvalidWindow      = errors.New("deadline: window days must not be negative")
)

// Deadline model. DueDate is a snapshot: it stays consistent with the
// holiday calendar as of its last computation and is never recomputed when
// holidays change retroactively.
type Deadline struct {
	ID              int64
	UID             string
	ProcessRef      uuid.NullUUID
	Title           string
	StartDate       time.Time
	DueDate         time.Time
	OriginalDueDate *time.Time
	DaysCount       int
	Counting        calendar.CountingType
	Status          Status
	Priority        Priority
	CompletedAt     *time.Time
	CompletionNotes string
	ProtocolRef     string
	Justification   string
	ExtensionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Extended reports whether the due date was ever moved past its first
// computed value.
func (d Deadline) Extended() bool {
	return d.OriginalDueDate != nil
}

// Type is an optional template used only to prefill a new deadline.
type Type struct {
	ID               int64
	Name             string
	DefaultDaysCount int
	DefaultCounting  calendar.CountingType
	DefaultPriority  Priority
}

// CreateInput collects the fields needed to create a deadline.
type CreateInput struct {
	Title        string
	ProcessRef   uuid.NullUUID
	StartDate    time.Time
	DaysCount    int
	Counting     calendar.CountingType
	Priority     Priority
	ProtocolRef  string
}

// ApplyDefaults prefills zero-valued fields from the template. The template
// has no further behavioural role once the deadline exists.
func (in *CreateInput) ApplyDefaults(t *Type) {
	if t == nil {
		return
	}
	if in.DaysCount == 0 {
		in.DaysCount = t.DefaultDaysCount
	}
	if in.Counting == "" {
		in.Counting = t.DefaultCounting
	}
	if in.Priority == "" {
		in.Priority = t.DefaultPriority
	}
}
