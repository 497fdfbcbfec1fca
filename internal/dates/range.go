// Package dates resolves user-supplied date tokens into inclusive day ranges.
//
// Two token shapes are accepted, distinguished by length: "MM/YYYY" selects a
// whole month and "MM/DD/YYYY" selects a single day. Both the observation
// window and the forecast horizon are built from the same resolver, so the
// month-end arithmetic here is load-bearing for both.
package dates

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidFormat = errors.New("invalid date format")

// Range is an inclusive interval of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Resolve converts a date token into a concrete inclusive range. A month
// token spans the first through the last real calendar day of that month; a
// day token yields Start == End.
func Resolve(token string) (Range, error) {
	switch len(token) {
	case 7: // MM/YYYY
		start, err := time.Parse("01/2006", token)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidFormat, token)
		}
		return Range{Start: start, End: EndOfMonth(start)}, nil
	case 10: // MM/DD/YYYY
		day, err := time.Parse("01/02/2006", token)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidFormat, token)
		}
		return Range{Start: day, End: day}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q (want MM/YYYY or MM/DD/YYYY)", ErrInvalidFormat, token)
	}
}

// EndOfMonth returns the last calendar day of t's month. Advancing from day
// 28 by four days always lands in the following month, so truncating to the
// first and stepping back one day handles 28/29/30/31-day months without a
// calendar table.
func EndOfMonth(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), 28, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 4)
	first := time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, next.Location())
	return first.AddDate(0, 0, -1)
}

// Days returns every day of the range in order, Start through End inclusive.
func (r Range) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
