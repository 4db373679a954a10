package holiday

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scope enumerates holiday calendar scopes.
type Scope string

const (
	ScopeNational  Scope = "NATIONAL"
	ScopeState     Scope = "STATE"
	ScopeMunicipal Scope = "MUNICIPAL"
	ScopeCourt     Scope = "COURT"
)

// Validation errors for holiday records and jurisdiction contexts.
var (
	ErrInvalidScope        = errors.New("holiday: invalid scope")
	ErrMissingStateCode    = errors.New("holiday: state code required for scope")
	ErrMissingCityName     = errors.New("holiday: city name required for municipal scope")
	ErrMissingCourtCode    = errors.New("holiday: court code required for court scope")
	ErrMissingJurisdiction = errors.New("holiday: jurisdiction context is empty")
	ErrDuplicate           = errors.New("holiday: duplicate holiday")
	ErrNotFound            = errors.New("holiday: not found")
)

// Holiday model. Rows are created and edited by administrators; the
// deadline engine only reads them.
type Holiday struct {
	ID        int64
	Name      string
	Date      time.Time
	Scope     Scope
	StateCode string
	CityName  string
	CourtCode string
	Recurring bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the scope/jurisdiction-field invariant.
func (h Holiday) Validate() error {
	switch h.Scope {
	case ScopeNational:
		return nil
	case ScopeState:
		if h.StateCode == "" {
			return ErrMissingStateCode
		}
	case ScopeMunicipal:
		if h.StateCode == "" {
			return ErrMissingStateCode
		}
		if h.CityName == "" {
			return ErrMissingCityName
		}
	case ScopeCourt:
		if h.CourtCode == "" {
			return ErrMissingCourtCode
		}
	default:
		return ErrInvalidScope
	}
	return nil
}

// Context identifies which holiday calendars apply to one deadline
// computation. It is derived by the caller from the owning legal case and is
// never persisted here.
type Context struct {
	StateCode  string
	CityName   string
	CourtCodes []string
}

// Validate rejects an empty context. Computing with no jurisdiction at all
// would silently under-apply holidays, so this fails loudly instead.
func (c Context) Validate() error {
	if c.StateCode == "" && c.CityName == "" && len(c.CourtCodes) == 0 {
		return ErrMissingJurisdiction
	}
	return nil
}

func (c Context) hasCourt(code string) bool {
	for _, cc := range c.CourtCodes {
		if strings.EqualFold(cc, code) {
			return true
		}
	}
	return false
}

var cityFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeCity folds a municipality name for comparison: diacritics are
// stripped and case is ignored, so "São Paulo" matches "sao paulo".
func NormalizeCity(name string) string {
	folded, _, err := transform.String(cityFold, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// TruncateDay normalises a timestamp to its UTC calendar day. All holiday
// and deadline arithmetic works at day granularity.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateSet is the applicable-holiday lookup result keyed by UTC day.
type DateSet map[time.Time]struct{}

// Contains reports whether the set holds the given day.
func (s DateSet) Contains(t time.Time) bool {
	_, ok := s[TruncateDay(t)]
	return ok
}

// AppliesTo reports whether the holiday belongs to the given jurisdiction
// context, ignoring dates.
func (h Holiday) AppliesTo(c Context) bool {
	switch h.Scope {
	case ScopeNational:
		return true
	case ScopeState:
		return h.StateCode != "" && strings.EqualFold(h.StateCode, c.StateCode)
	case ScopeMunicipal:
		return h.StateCode != "" && strings.EqualFold(h.StateCode, c.StateCode) &&
			NormalizeCity(h.CityName) == NormalizeCity(c.CityName) && c.CityName != ""
	case ScopeCourt:
		return h.CourtCode != "" && c.hasCourt(h.CourtCode)
	}
	return false
}

// DatesWithin expands the holiday into the concrete days it occupies inside
// [from, to]. Non-recurring holidays contribute at most their stored date;
// recurring holidays contribute their month/day for every year in range.
func (h Holiday) DatesWithin(from, to time.Time) []time.Time {
	from = TruncateDay(from)
	to = TruncateDay(to)
	if to.Before(from) {
		return nil
	}

	if !h.Recurring {
		d := TruncateDay(h.Date)
		if d.Before(from) || d.After(to) {
			return nil
		}
		return []time.Time{d}
	}

	var out []time.Time
	_, month, day := h.Date.UTC().Date()
	for year := from.Year(); year <= to.Year(); year++ {
		occ := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		// Feb 29 in a non-leap year normalises to Mar 1; skip those.
		if occ.Month() != month || occ.Day() != day {
			continue
		}
		if occ.Before(from) || occ.After(to) {
			continue
		}
		out = append(out, occ)
	}
	return out
}
