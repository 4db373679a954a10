package deadline

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexdesk/lexdesk/internal/calendar"
	"github.com/lexdesk/lexdesk/internal/holiday"
)

// UIDPrefix is the sequence prefix used for deadline identifiers.
const UIDPrefix = "DLN"

// RepositoryPort defines data access methods for deadlines. The transition
// methods re-check status at commit time: a guarded update that matches no
// Pending row reports ErrAlreadyTerminal for an existing deadline, so a
// concurrent caller never silently overwrites a terminal state.
type RepositoryPort interface {
	Create(ctx context.Context, d Deadline) (*Deadline, error)
	Get(ctx context.Context, id int64) (*Deadline, error)
	GetByUID(ctx context.Context, uid string) (*Deadline, error)
	Complete(ctx context.Context, id int64, at time.Time, notes, protocolRef string) (*Deadline, error)
	Extend(ctx context.Context, id int64, newDueDate time.Time, reason string) (*Deadline, error)
	MarkMissed(ctx context.Context, id int64, justification string) (*Deadline, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Deadline, error)
	ListDueOn(ctx context.Context, day time.Time) ([]Deadline, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]Deadline, error)
}

// CalendarPort projects due dates; implemented by the calendar service.
type CalendarPort interface {
	DueDate(ctx context.Context, start time.Time, n int, counting calendar.CountingType, jctx holiday.Context) (time.Time, error)
}

// AllocatorPort issues global UIDs; implemented by the sequence allocator.
type AllocatorPort interface {
	Allocate(ctx context.Context, prefix string) (string, error)
}

// Service owns the deadline lifecycle.
type Service struct {
	repo     RepositoryPort
	calendar CalendarPort
	uids     AllocatorPort
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cal CalendarPort, uids AllocatorPort) *Service {
	return &Service{repo: repo, calendar: cal, uids: uids, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Create computes the due date for the jurisdiction context and persists a
// new Pending deadline under a freshly allocated UID. An optional template
// prefills count, counting type and priority.
func (s *Service) Create(ctx context.Context, in CreateInput, tmpl *Type, jctx holiday.Context) (*Deadline, error) {
	in.ApplyDefaults(tmpl)

	if !in.Counting.Valid() {
		return nil, calendar.ErrInvalidCountingType
	}
	priority, err := ParsePriority(string(in.Priority))
	if err != nil {
		return nil, err
	}

	start := holiday.TruncateDay(in.StartDate)
	due, err := s.calendar.DueDate(ctx, start, in.DaysCount, in.Counting, jctx)
	if err != nil {
		return nil, err
	}

	uid, err := s.uids.Allocate(ctx, UIDPrefix)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, Deadline{
		UID:         uid,
		ProcessRef:  in.ProcessRef,
		Title:       strings.TrimSpace(in.Title),
		StartDate:   start,
		DueDate:     due,
		DaysCount:   in.DaysCount,
		Counting:    in.Counting,
		Status:      StatusPending,
		Priority:    priority,
		ProtocolRef: in.ProtocolRef,
	})
}

// Complete fulfils a Pending deadline. Completion is not idempotent: a
// second call fails with ErrAlreadyTerminal.
func (s *Service) Complete(ctx context.Context, id int64, notes, protocolRef string) (*Deadline, error) {
	return s.repo.Complete(ctx, id, s.now().UTC(), notes, protocolRef)
}

// Extend moves the due date of a Pending deadline forward. The first
// extension snapshots the originally computed due date; later extensions
// leave that snapshot untouched. A new due date before today is rejected.
func (s *Service) Extend(ctx context.Context, id int64, newDueDate time.Time, reason string) (*Deadline, error) {
	newDay := holiday.TruncateDay(newDueDate)
	if newDay.Before(holiday.TruncateDay(s.now())) {
		return nil, ErrPastDueDate
	}
	return s.repo.Extend(ctx, id, newDay, reason)
}

// MarkAsMissed records that a Pending deadline lapsed. A justification is
// mandatory: missing a legal deadline has real-world effect and must be
// accounted for.
func (s *Service) MarkAsMissed(ctx context.Context, id int64, justification string) (*Deadline, error) {
	if strings.TrimSpace(justification) == "" {
		return nil, ErrEmptyJustification
	}
	return s.repo.MarkMissed(ctx, id, justification)
}

// Get returns one deadline by id.
func (s *Service) Get(ctx context.Context, id int64) (*Deadline, error) {
	return s.repo.Get(ctx, id)
}

// GetByUID returns one deadline by its global UID.
func (s *Service) GetByUID(ctx context.Context, uid string) (*Deadline, error) {
	return s.repo.GetByUID(ctx, uid)
}

// Overdue returns Pending deadlines whose due date passed before asOf.
func (s *Service) Overdue(ctx context.Context, asOf time.Time) ([]Deadline, error) {
	return s.repo.ListOverdue(ctx, holiday.TruncateDay(asOf))
}

// DueToday returns Pending deadlines due exactly on asOf's day.
func (s *Service) DueToday(ctx context.Context, asOf time.Time) ([]Deadline, error) {
	return s.repo.ListDueOn(ctx, holiday.TruncateDay(asOf))
}

// DueSoon returns Pending deadlines due within windowDays of asOf,
// inclusive on both ends.
func (s *Service) DueSoon(ctx context.Context, asOf time.Time, windowDays int) ([]Deadline, error) {
	if windowDays < 0 {
		return nil, ErrInvalidWindow
	}
	day := holiday.TruncateDay(asOf)
	return s.repo.ListDueBetween(ctx, day, day.AddDate(0, 0, windowDays))
}

// Dashboard aggregates the three dashboard queries.
type Dashboard struct {
	Overdue  []Deadline
	DueToday []Deadline
	DueSoon  []Deadline
}

// BuildDashboard runs the dashboard queries concurrently.
func (s *Service) BuildDashboard(ctx context.Context, asOf time.Time, windowDays int) (*Dashboard, error) {
	if windowDays < 0 {
		return nil, ErrInvalidWindow
	}
	var board Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.Overdue(gctx, asOf)
		board.Overdue = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.DueToday(gctx, asOf)
		board.DueToday = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.DueSoon(gctx, asOf, windowDays)
		board.DueSoon = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &board, nil
}
