package calendar

import "errors"

// CountingType enumerates day-counting regimes for due-date arithmetic.
type CountingType string

const (
	// BusinessDays skips weekends and applicable holidays.
	BusinessDays CountingType = "BUSINESS_DAYS"
	// CalendarDays counts every day.
	CalendarDays CountingType = "CALENDAR_DAYS"
	// Continuous counts every day, including through judicial recess. The
	// arithmetic matches CalendarDays; the distinct value records the
	// procedural-law regime on the deadline.
	Continuous CountingType = "CONTINUOUS"
)

// ErrInvalidCountingType indicates an unrecognised counting-type value.
var ErrInvalidCountingType = errors.New("calendar: invalid counting type")

// ParseCountingType validates a raw counting-type value.
func ParseCountingType(raw string) (CountingType, error) {
	switch CountingType(raw) {
	case BusinessDays, CalendarDays, Continuous:
		return CountingType(raw), nil
	}
	return "", ErrInvalidCountingType
}

// Valid reports whether the counting type is one of the known regimes.
func (c CountingType) Valid() bool {
	_, err := ParseCountingType(string(c))
	return err == nil
}
