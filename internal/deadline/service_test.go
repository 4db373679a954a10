package deadline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexdesk/lexdesk/internal/calendar"
	"github.com/lexdesk/lexdesk/internal/holiday"
)

type memoryDeadlineRepo struct {
	rows   map[int64]*Deadline
	nextID int64
}

func newMemoryDeadlineRepo() *memoryDeadlineRepo {
	return &memoryDeadlineRepo{rows: make(map[int64]*Deadline)}
}

func (r *memoryDeadlineRepo) Create(ctx context.Context, d Deadline) (*Deadline, error) {
	r.nextID++
	d.ID = r.nextID
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	r.rows[d.ID] = &d
	return &d, nil
}

func (r *memoryDeadlineRepo) Get(ctx context.Context, id int64) (*Deadline, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *memoryDeadlineRepo) GetByUID(ctx context.Context, uid string) (*Deadline, error) {
	for _, d := range r.rows {
		if d.UID == uid {
			copied := *d
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// pending mirrors the repository's guarded update: the transition applies
// only while the row is still Pending.
func (r *memoryDeadlineRepo) pending(id int64) (*Deadline, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if d.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	return d, nil
}

func (r *memoryDeadlineRepo) Complete(ctx context.Context, id int64, at time.Time, notes, protocolRef string) (*Deadline, error) {
	d, err := r.pending(id)
	if err != nil {
		return nil, err
	}
	d.Status = StatusCompleted
	d.CompletedAt = &at
	d.CompletionNotes = notes
	if protocolRef != "" {
		d.ProtocolRef = protocolRef
	}
	d.UpdatedAt = time.Now()
	copied := *d
	return &copied, nil
}

func (r *memoryDeadlineRepo) Extend(ctx context.Context, id int64, newDueDate time.Time, reason string) (*Deadline, error) {
	d, err := r.pending(id)
	if err != nil {
		return nil, err
	}
	if d.OriginalDueDate == nil {
		orig := d.DueDate
		d.OriginalDueDate = &orig
	}
	d.DueDate = newDueDate
	d.ExtensionReason = reason
	d.UpdatedAt = time.Now()
	copied := *d
	return &copied, nil
}

func (r *memoryDeadlineRepo) MarkMissed(ctx context.Context, id int64, justification string) (*Deadline, error) {
	d, err := r.pending(id)
	if err != nil {
		return nil, err
	}
	d.Status = StatusMissed
	d.Justification = justification
	d.UpdatedAt = time.Now()
	copied := *d
	return &copied, nil
}

func (r *memoryDeadlineRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]Deadline, error) {
	var out []Deadline
	for _, d := range r.rows {
		if d.Status == StatusPending && d.DueDate.Before(asOf) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memoryDeadlineRepo) ListDueOn(ctx context.Context, day time.Time) ([]Deadline, error) {
	var out []Deadline
	for _, d := range r.rows {
		if d.Status == StatusPending && d.DueDate.Equal(day) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memoryDeadlineRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]Deadline, error) {
	var out []Deadline
	for _, d := range r.rows {
		if d.Status == StatusPending && !d.DueDate.Before(from) && !d.DueDate.After(to) {
			out = append(out, *d)
		}
	}
	return out, nil
}

// plainCalendar projects due dates as straight day addition, enough for
// lifecycle tests that do not exercise holiday arithmetic.
type plainCalendar struct{}

func (plainCalendar) DueDate(ctx context.Context, start time.Time, n int, counting calendar.CountingType, jctx holiday.Context) (time.Time, error) {
	if n < 0 {
		return time.Time{}, calendar.ErrInvalidDaysCount
	}
	if !counting.Valid() {
		return time.Time{}, calendar.ErrInvalidCountingType
	}
	return start.AddDate(0, 0, n), nil
}

type fakeAllocator struct {
	last int64
}

func (a *fakeAllocator) Allocate(ctx context.Context, prefix string) (string, error) {
	a.last++
	return fmt.Sprintf("%s-%d", prefix, 10000+a.last), nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var jctxSP = holiday.Context{StateCode: "SP"}

func newTestService() (*Service, *memoryDeadlineRepo) {
	repo := newMemoryDeadlineRepo()
	svc := NewService(repo, plainCalendar{}, &fakeAllocator{})
	svc.WithNow(func() time.Time { return day(2026, 3, 10) })
	return svc, repo
}

func createPending(t *testing.T, svc *Service, daysCount int) *Deadline {
	t.Helper()
	d, err := svc.Create(context.Background(), CreateInput{
		Title:     "File appeal",
		StartDate: day(2026, 3, 10),
		DaysCount: daysCount,
		Counting:  calendar.BusinessDays,
	}, nil, jctxSP)
	require.NoError(t, err)
	return d
}

func TestCreateComputesDueDateAndAllocatesUID(t *testing.T) {
	svc, _ := newTestService()

	d, err := svc.Create(context.Background(), CreateInput{
		Title:     "Answer complaint",
		StartDate: day(2026, 3, 10),
		DaysCount: 15,
		Counting:  calendar.BusinessDays,
		Priority:  PriorityHigh,
	}, nil, jctxSP)
	require.NoError(t, err)
	require.Equal(t, "DLN-10001", d.UID)
	require.Equal(t, StatusPending, d.Status)
	require.Equal(t, PriorityHigh, d.Priority)
	require.Equal(t, day(2026, 3, 25), d.DueDate)
	require.Nil(t, d.OriginalDueDate)
	require.False(t, d.Extended())
}

func TestCreateDefaultsPriorityToNormal(t *testing.T) {
	svc, _ := newTestService()

	d := createPending(t, svc, 5)
	require.Equal(t, PriorityNormal, d.Priority)
}

func TestCreateAppliesTemplateDefaults(t *testing.T) {
	svc, _ := newTestService()

	tmpl := &Type{
		Name:             "Appeal",
		DefaultDaysCount: 15,
		DefaultCounting:  calendar.CalendarDays,
		DefaultPriority:  PriorityCritical,
	}
	d, err := svc.Create(context.Background(), CreateInput{
		Title:     "Appeal sentence",
		StartDate: day(2026, 3, 10),
	}, tmpl, jctxSP)
	require.NoError(t, err)
	require.Equal(t, 15, d.DaysCount)
	require.Equal(t, calendar.CalendarDays, d.Counting)
	require.Equal(t, PriorityCritical, d.Priority)
}

func TestCreateRejectsUnknownCountingType(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{
		Title:     "Bad regime",
		StartDate: day(2026, 3, 10),
		DaysCount: 5,
		Counting:  calendar.CountingType("MOON_PHASES"),
	}, nil, jctxSP)
	require.ErrorIs(t, err, calendar.ErrInvalidCountingType)
}

func TestCompleteSetsTerminalState(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	done, err := svc.Complete(context.Background(), d.ID, "filed electronically", "PROT-2026-774")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, "filed electronically", done.CompletionNotes)
	require.Equal(t, "PROT-2026-774", done.ProtocolRef)
}

func TestCompleteIsNotIdempotent(t *testing.T) {
	svc, repo := newTestService()
	d := createPending(t, svc, 5)

	done, err := svc.Complete(context.Background(), d.ID, "", "")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), d.ID, "again", "")
	require.ErrorIs(t, err, ErrAlreadyTerminal)

	// The failed call changed nothing.
	current, err := repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, current.Status)
	require.Equal(t, done.CompletionNotes, current.CompletionNotes)
	require.Equal(t, done.CompletedAt.Unix(), current.CompletedAt.Unix())
}

func TestExtendSnapshotsOriginalDueDateOnce(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)
	firstDue := d.DueDate

	extended, err := svc.Extend(context.Background(), d.ID, day(2026, 3, 20), "court closed")
	require.NoError(t, err)
	require.Equal(t, StatusPending, extended.Status)
	require.True(t, extended.Extended())
	require.Equal(t, firstDue, *extended.OriginalDueDate)
	require.Equal(t, day(2026, 3, 20), extended.DueDate)

	again, err := svc.Extend(context.Background(), d.ID, day(2026, 3, 27), "expert report pending")
	require.NoError(t, err)
	require.Equal(t, firstDue, *again.OriginalDueDate, "first snapshot is immutable")
	require.Equal(t, day(2026, 3, 27), again.DueDate)
}

func TestExtendRejectsPastDueDate(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	_, err := svc.Extend(context.Background(), d.ID, day(2026, 3, 9), "late request")
	require.ErrorIs(t, err, ErrPastDueDate)
}

func TestExtendAllowsToday(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	extended, err := svc.Extend(context.Background(), d.ID, day(2026, 3, 10), "same day")
	require.NoError(t, err)
	require.Equal(t, day(2026, 3, 10), extended.DueDate)
}

func TestExtendTerminalDeadlineFails(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	_, err := svc.Complete(context.Background(), d.ID, "", "")
	require.NoError(t, err)

	_, err = svc.Extend(context.Background(), d.ID, day(2026, 4, 1), "too late")
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestMarkAsMissedRequiresJustification(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	_, err := svc.MarkAsMissed(context.Background(), d.ID, "   ")
	require.ErrorIs(t, err, ErrEmptyJustification)

	missed, err := svc.MarkAsMissed(context.Background(), d.ID, "client unreachable for signature")
	require.NoError(t, err)
	require.Equal(t, StatusMissed, missed.Status)
	require.Equal(t, "client unreachable for signature", missed.Justification)
}

func TestMarkAsMissedOnTerminalFails(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	_, err := svc.MarkAsMissed(context.Background(), d.ID, "lapsed")
	require.NoError(t, err)

	_, err = svc.MarkAsMissed(context.Background(), d.ID, "lapsed again")
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestDashboardQueries(t *testing.T) {
	svc, repo := newTestService()
	today := day(2026, 3, 10)

	// Shape due dates directly on the fixtures.
	yesterday := createPending(t, svc, 0)
	repo.rows[yesterday.ID].DueDate = day(2026, 3, 9)

	dueToday := createPending(t, svc, 0)
	repo.rows[dueToday.ID].DueDate = today

	tomorrow := createPending(t, svc, 1)
	repo.rows[tomorrow.ID].DueDate = day(2026, 3, 11)
	_, err := svc.Complete(context.Background(), tomorrow.ID, "", "")
	require.NoError(t, err)

	overdue, err := svc.Overdue(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, yesterday.ID, overdue[0].ID)

	due, err := svc.DueToday(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, dueToday.ID, due[0].ID)

	soon, err := svc.DueSoon(context.Background(), today, 7)
	require.NoError(t, err)
	require.Len(t, soon, 1, "completed deadlines never appear")
	require.Equal(t, dueToday.ID, soon[0].ID)

	board, err := svc.BuildDashboard(context.Background(), today, 7)
	require.NoError(t, err)
	require.Len(t, board.Overdue, 1)
	require.Len(t, board.DueToday, 1)
	require.Len(t, board.DueSoon, 1)
}

func TestDueSoonRejectsNegativeWindow(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.DueSoon(context.Background(), day(2026, 3, 10), -1)
	require.ErrorIs(t, err, ErrInvalidWindow)

	_, err = svc.BuildDashboard(context.Background(), day(2026, 3, 10), -1)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestGetByUID(t *testing.T) {
	svc, _ := newTestService()
	d := createPending(t, svc, 5)

	found, err := svc.GetByUID(context.Background(), d.UID)
	require.NoError(t, err)
	require.Equal(t, d.ID, found.ID)

	_, err = svc.GetByUID(context.Background(), "DLN-99999")
	require.ErrorIs(t, err, ErrNotFound)
}
