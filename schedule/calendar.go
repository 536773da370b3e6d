package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME OF DAY - Local wall-clock position on a 24h cycle
// =============================================================================

const minutesPerDay = 24 * 60

// TimeOfDay is a local wall-clock time as minutes after midnight, in [0, 1440).
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted as midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" {
		return 0, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }
func (t TimeOfDay) Valid() bool { return t >= 0 && t < minutesPerDay }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On returns the instant of t on the given local date.
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, loc)
}

// Until returns the forward distance from t to other on the 24h cycle.
// Equal times are a full day apart.
func (t TimeOfDay) Until(other TimeOfDay) time.Duration {
	d := (int(other) - int(t) + minutesPerDay) % minutesPerDay
	if d == 0 {
		d = minutesPerDay
	}
	return time.Duration(d) * time.Minute
}

// TimeOfDayOf returns the local wall-clock position of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// =============================================================================
// BUSINESS DAY - Operating window keyed to a date, may end past midnight
// =============================================================================

// Hours are the daily opening and closing times. A closing time at or before
// the opening time falls on the following date.
type Hours struct {
	Open  TimeOfDay
	Close TimeOfDay
}

// Span is the length of the operating window.
func (h Hours) Span() time.Duration { return h.Open.Until(h.Close) }

// BusinessDay is the operating window that opens on Date.
type BusinessDay struct {
	Date     time.Time // only year, month and day are used
	Location *time.Location
	Hours    Hours
}

// NewBusinessDay keys a business day to the local calendar date of date.
func NewBusinessDay(date time.Time, loc *time.Location, hours Hours) BusinessDay {
	d := date.In(loc)
	return BusinessDay{
		Date:     time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc),
		Location: loc,
		Hours:    hours,
	}
}

func (bd BusinessDay) Opening() time.Time {
	return bd.Hours.Open.On(bd.Date.Year(), bd.Date.Month(), bd.Date.Day(), bd.Location)
}

// Closing is always Opening plus the configured span.
func (bd BusinessDay) Closing() time.Time {
	return bd.Opening().Add(bd.Hours.Span())
}

func (bd BusinessDay) Window() Interval {
	return Interval{Start: bd.Opening(), End: bd.Closing()}
}

func (bd BusinessDay) Next() BusinessDay {
	return BusinessDay{Date: bd.Date.AddDate(0, 0, 1), Location: bd.Location, Hours: bd.Hours}
}

// At returns the instant of tod inside this business day. Times before the
// opening time belong to the following date.
func (bd BusinessDay) At(tod TimeOfDay) time.Time {
	t := tod.On(bd.Date.Year(), bd.Date.Month(), bd.Date.Day(), bd.Location)
	if tod < bd.Hours.Open {
		t = tod.On(bd.Date.Year(), bd.Date.Month(), bd.Date.Day()+1, bd.Location)
	}
	return t
}

// IsPast reports whether the business day has already closed at now.
func (bd BusinessDay) IsPast(now time.Time) bool {
	return !bd.Closing().After(now)
}

func (bd BusinessDay) String() string { return bd.Date.Format("2006-01-02") }

// =============================================================================
// CLOCK
// =============================================================================

// Clock supplies "now". Every local-time computation uses Location().
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock reads the wall clock in a fixed zone.
type SystemClock struct {
	Loc *time.Location
}

func NewSystemClock(loc *time.Location) SystemClock { return SystemClock{Loc: loc} }

func (c SystemClock) Now() time.Time           { return time.Now().In(c.Loc) }
func (c SystemClock) Location() *time.Location { return c.Loc }

// FixedClock always returns the same instant. Used in tests and replays.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time           { return c.At }
func (c FixedClock) Location() *time.Location { return c.At.Location() }

// Today returns the local calendar date of now at midnight.
func Today(c Clock) time.Time {
	now := c.Now().In(c.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.Location())
}
