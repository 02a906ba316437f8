package core

import (
	"time"
)

// dayLayout is the canonical calendar day format.
const dayLayout = "2006-01-02"

// Day identifies one calendar day as ISO YYYY-MM-DD.
// The string form sorts chronologically, so Days compare with < and >.
type Day string

// ParseDay validates and canonicalizes a day string.
// This is the one validation the scoring core performs itself; the
// forward recurrence assumes well-formed calendar dates.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", ErrInvalidDay
	}
	// Round-trip to reject things like 2024-1-02 that time.Parse accepts
	// only in canonical form anyway, and to normalize the value.
	return Day(t.Format(dayLayout)), nil
}

// DayOf truncates a time to its calendar day.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// Today returns the current calendar day in local time.
func Today() Day {
	return DayOf(time.Now())
}

// Time returns midnight of the day. Day values are always created via
// ParseDay or DayOf, so the parse cannot fail.
func (d Day) Time() time.Time {
	t, _ := time.Parse(dayLayout, string(d))
	return t
}

// Prev returns the previous calendar day.
func (d Day) Prev() Day {
	return DayOf(d.Time().AddDate(0, 0, -1))
}

// Next returns the next calendar day.
func (d Day) Next() Day {
	return DayOf(d.Time().AddDate(0, 0, 1))
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return string(d) < string(other)
}

// After reports whether d is later than other.
func (d Day) After(other Day) bool {
	return string(d) > string(other)
}

func (d Day) String() string {
	return string(d)
}
