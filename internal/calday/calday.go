// Package calday canonicalizes date inputs to timezone-agnostic calendar days.
//
// Every component that needs to answer "which day does this belong to" goes
// through this package. Parsing takes the calendar-day portion as literally
// written and never shifts it through timezone conversion: the day the user
// wrote is the day they meant.
package calday

import (
	"fmt"
	"time"

	"github.com/prodtrack/jornada/internal/model"
)

const layout = "2006-01-02"

// Day is a (year, month, day) triple with no time-of-day and no timezone tag.
// The zero value is not a valid day; check IsZero.
type Day struct {
	year  int
	month time.Month
	day   int
}

// Parse resolves a date string to a Day. Accepted forms are "YYYY-MM-DD" and
// any timestamp string starting with "YYYY-MM-DD" followed by 'T' or ' '; the
// time and zone suffix, if any, is ignored. Fails with model.ErrInvalidDate
// when the input is not a real calendar date.
func Parse(s string) (Day, error) {
	if len(s) < len(layout) {
		return Day{}, fmt.Errorf("%w: %q", model.ErrInvalidDate, s)
	}
	if len(s) > len(layout) {
		switch s[len(layout)] {
		case 'T', ' ':
		default:
			return Day{}, fmt.Errorf("%w: %q", model.ErrInvalidDate, s)
		}
	}
	t, err := time.Parse(layout, s[:len(layout)])
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", model.ErrInvalidDate, s)
	}
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}, nil
}

// FromTime reads the year/month/day fields of t directly, in t's own
// location. The instant is not reinterpreted through UTC, so a value parsed
// or stored with a wall-clock date keeps that date.
func FromTime(t time.Time) (Day, error) {
	if t.IsZero() {
		return Day{}, fmt.Errorf("%w: zero time", model.ErrInvalidDate)
	}
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}, nil
}

// MustParse is a test/fixture helper; it panics on invalid input.
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats the day as "YYYY-MM-DD". Round-trip law:
// Parse(d.String()) == d for every valid day.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// Time returns the day's zero time-of-day as a UTC instant. This is the
// canonical stored representation of a day column.
func (d Day) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Range returns the inclusive instant range [00:00:00.000, 23:59:59.999] of
// the day, used by range queries that must tolerate legacy stored days
// carrying a drifted time-of-day.
func (d Day) Range() (time.Time, time.Time) {
	start := d.Time()
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	y, m, dd := d.Time().AddDate(0, 0, 1).Date()
	return Day{year: y, month: m, day: dd}
}

// Equal reports whether both days name the same (year, month, day).
func (d Day) Equal(o Day) bool { return d == o }

// Before orders days chronologically.
func (d Day) Before(o Day) bool {
	if d.year != o.year {
		return d.year < o.year
	}
	if d.month != o.month {
		return d.month < o.month
	}
	return d.day < o.day
}

// IsZero reports whether d is the invalid zero value.
func (d Day) IsZero() bool { return d == Day{} }
