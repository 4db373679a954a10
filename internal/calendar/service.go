// Package calendar resolves working days and projects due dates under the
// jurisdiction-dependent holiday calendar.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/lexdesk/lexdesk/internal/holiday"
)

// ErrInvalidDaysCount indicates a negative day count passed to arithmetic.
var ErrInvalidDaysCount = errors.New("calendar: days count must not be negative")

// HolidaySource resolves applicable holiday days for a jurisdiction context.
// Implemented by the holiday service (directly or through its cache).
type HolidaySource interface {
	FindApplicable(ctx context.Context, jctx holiday.Context, from, to time.Time) (holiday.DateSet, error)
}

// Service performs day-count arithmetic against the holiday calendar. It
// keeps no state of its own beyond the read-only holiday source.
type Service struct {
	holidays HolidaySource
}

// NewService builds Service instance.
func NewService(holidays HolidaySource) *Service {
	return &Service{holidays: holidays}
}

// IsWorkingDay reports whether the date is neither a weekend day nor an
// applicable holiday for the context.
func (s *Service) IsWorkingDay(ctx context.Context, date time.Time, jctx holiday.Context) (bool, error) {
	day := holiday.TruncateDay(date)
	if isWeekend(day) {
		return false, nil
	}
	set, err := s.holidays.FindApplicable(ctx, jctx, day, day)
	if err != nil {
		return false, err
	}
	return !set.Contains(day), nil
}

// AddBusinessDays walks forward from start, counting only working days. The
// start date itself never counts as elapsed time; a zero count still
// resolves to the first working day strictly after start, never start
// itself.
func (s *Service) AddBusinessDays(ctx context.Context, start time.Time, n int, jctx holiday.Context) (time.Time, error) {
	if n < 0 {
		return time.Time{}, ErrInvalidDaysCount
	}
	if err := jctx.Validate(); err != nil {
		return time.Time{}, err
	}

	day := holiday.TruncateDay(start)

	// One holiday fetch covers the whole walk; extended below if outrun.
	windowEnd := day.AddDate(0, 0, n*2+14)
	set, err := s.holidays.FindApplicable(ctx, jctx, day, windowEnd)
	if err != nil {
		return time.Time{}, err
	}

	remaining := n
	for {
		day = day.AddDate(0, 0, 1)
		if day.After(windowEnd) {
			windowEnd = windowEnd.AddDate(0, 0, 60)
			set, err = s.holidays.FindApplicable(ctx, jctx, day, windowEnd)
			if err != nil {
				return time.Time{}, err
			}
		}
		if isWeekend(day) || set.Contains(day) {
			continue
		}
		if remaining <= 0 {
			return day, nil
		}
		remaining--
		if remaining == 0 {
			return day, nil
		}
	}
}

// AddCalendarDays returns start shifted by n days with no skipping.
func (s *Service) AddCalendarDays(start time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, ErrInvalidDaysCount
	}
	return holiday.TruncateDay(start).AddDate(0, 0, n), nil
}

// DueDate projects a due date from start under the given counting regime.
// Continuous counting runs straight through like calendar days; recess
// suspension is a procedural-law concern recorded on the deadline, not
// computed here.
func (s *Service) DueDate(ctx context.Context, start time.Time, n int, counting CountingType, jctx holiday.Context) (time.Time, error) {
	switch counting {
	case BusinessDays:
		return s.AddBusinessDays(ctx, start, n, jctx)
	case CalendarDays, Continuous:
		return s.AddCalendarDays(start, n)
	}
	return time.Time{}, ErrInvalidCountingType
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
