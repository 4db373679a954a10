package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexdesk/lexdesk/internal/holiday"
)

type staticHolidays struct {
	days holiday.DateSet
}

func newStaticHolidays(dates ...time.Time) *staticHolidays {
	set := make(holiday.DateSet, len(dates))
	for _, d := range dates {
		set[holiday.TruncateDay(d)] = struct{}{}
	}
	return &staticHolidays{days: set}
}

func (s *staticHolidays) FindApplicable(ctx context.Context, jctx holiday.Context, from, to time.Time) (holiday.DateSet, error) {
	if err := jctx.Validate(); err != nil {
		return nil, err
	}
	out := make(holiday.DateSet)
	for d := range s.days {
		if !d.Before(holiday.TruncateDay(from)) && !d.After(holiday.TruncateDay(to)) {
			out[d] = struct{}{}
		}
	}
	return out, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var ctxSP = holiday.Context{StateCode: "SP"}

func TestAddBusinessDaysSpansWeekend(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays())

	// Monday 2026-03-02 plus 5 business days lands on the next Monday.
	got, err := svc.AddBusinessDays(ctx, day(2026, 3, 2), 5, ctxSP)
	require.NoError(t, err)
	require.Equal(t, day(2026, 3, 9), got)
}

func TestAddBusinessDaysZeroCountResolvesToNextWorkingDay(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays())

	// Friday 2026-03-06: "due immediately" still lands on Monday, never on
	// the start date itself.
	got, err := svc.AddBusinessDays(ctx, day(2026, 3, 6), 0, ctxSP)
	require.NoError(t, err)
	require.Equal(t, day(2026, 3, 9), got)
}

func TestAddBusinessDaysSkipsHolidays(t *testing.T) {
	ctx := context.Background()
	// Wednesday 2026-03-04 is a holiday.
	svc := NewService(newStaticHolidays(day(2026, 3, 4)))

	got, err := svc.AddBusinessDays(ctx, day(2026, 3, 2), 3, ctxSP)
	require.NoError(t, err)
	require.Equal(t, day(2026, 3, 6), got)
}

func TestAddBusinessDaysStartDateNotCounted(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays())

	got, err := svc.AddBusinessDays(ctx, day(2026, 3, 2), 1, ctxSP)
	require.NoError(t, err)
	require.Equal(t, day(2026, 3, 3), got)
}

func TestAddBusinessDaysRejectsNegativeCount(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays())

	_, err := svc.AddBusinessDays(ctx, day(2026, 3, 2), -1, ctxSP)
	require.ErrorIs(t, err, ErrInvalidDaysCount)
}

func TestAddBusinessDaysRequiresJurisdiction(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays())

	_, err := svc.AddBusinessDays(ctx, day(2026, 3, 2), 5, holiday.Context{})
	require.ErrorIs(t, err, holiday.ErrMissingJurisdiction)
}

func TestAddCalendarDays(t *testing.T) {
	svc := NewService(newStaticHolidays())

	got, err := svc.AddCalendarDays(day(2026, 3, 2), 15)
	require.NoError(t, err)
	require.Equal(t, day(2026, 3, 17), got)

	_, err = svc.AddCalendarDays(day(2026, 3, 2), -3)
	require.ErrorIs(t, err, ErrInvalidDaysCount)
}

func TestDueDateContinuousMatchesCalendarDays(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays(day(2026, 3, 4)))

	calDue, err := svc.DueDate(ctx, day(2026, 3, 2), 10, CalendarDays, ctxSP)
	require.NoError(t, err)
	contDue, err := svc.DueDate(ctx, day(2026, 3, 2), 10, Continuous, ctxSP)
	require.NoError(t, err)
	require.Equal(t, calDue, contDue)
}

func TestDueDateRejectsUnknownCountingType(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays())

	_, err := svc.DueDate(ctx, day(2026, 3, 2), 10, CountingType("FORTNIGHTS"), ctxSP)
	require.ErrorIs(t, err, ErrInvalidCountingType)
}

func TestIsWorkingDay(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newStaticHolidays(day(2026, 3, 4)))

	working, err := svc.IsWorkingDay(ctx, day(2026, 3, 3), ctxSP)
	require.NoError(t, err)
	require.True(t, working)

	saturday, err := svc.IsWorkingDay(ctx, day(2026, 3, 7), ctxSP)
	require.NoError(t, err)
	require.False(t, saturday)

	holidayDay, err := svc.IsWorkingDay(ctx, day(2026, 3, 4), ctxSP)
	require.NoError(t, err)
	require.False(t, holidayDay)
}

func TestParseCountingType(t *testing.T) {
	for _, raw := range []string{"BUSINESS_DAYS", "CALENDAR_DAYS", "CONTINUOUS"} {
		parsed, err := ParseCountingType(raw)
		require.NoError(t, err)
		require.True(t, parsed.Valid())
	}

	_, err := ParseCountingType("business_days")
	require.ErrorIs(t, err, ErrInvalidCountingType)
}
