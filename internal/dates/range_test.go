package dates

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveMonthTokens(t *testing.T) {
	tests := []struct {
		token string
		start time.Time
		end   time.Time
	}{
		{"01/2024", date(2024, time.January, 1), date(2024, time.January, 31)},
		{"02/2024", date(2024, time.February, 1), date(2024, time.February, 29)}, // leap year
		{"02/2023", date(2023, time.February, 1), date(2023, time.February, 28)},
		{"02/2000", date(2000, time.February, 1), date(2000, time.February, 29)}, // divisible by 400
		{"02/1900", date(1900, time.February, 1), date(1900, time.February, 28)}, // century, not leap
		{"04/2025", date(2025, time.April, 1), date(2025, time.April, 30)},
		{"12/2016", date(2016, time.December, 1), date(2016, time.December, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			r, err := Resolve(tt.token)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.token, err)
			}
			if !r.Start.Equal(tt.start) {
				t.Errorf("Start = %v, want %v", r.Start, tt.start)
			}
			if !r.End.Equal(tt.end) {
				t.Errorf("End = %v, want %v", r.End, tt.end)
			}
		})
	}
}

func TestResolveAllMonthEnds(t *testing.T) {
	// Every month of a leap and a non-leap year must end on the last real day.
	for _, year := range []int{2023, 2024} {
		for m := time.January; m <= time.December; m++ {
			token := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC).Format("01/2006")
			r, err := Resolve(token)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", token, err)
			}
			// The day after the end must be the first of the next month.
			next := r.End.AddDate(0, 0, 1)
			if next.Day() != 1 {
				t.Errorf("Resolve(%q).End = %v, not the last day of the month", token, r.End)
			}
			if next.Month() == r.End.Month() {
				t.Errorf("Resolve(%q).End = %v, month did not roll over", token, r.End)
			}
		}
	}
}

func TestResolveDayTokens(t *testing.T) {
	r, err := Resolve("12/01/2016")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := date(2016, time.December, 1)
	if !r.Start.Equal(want) || !r.End.Equal(want) {
		t.Errorf("Resolve(day) = [%v, %v], want start == end == %v", r.Start, r.End, want)
	}
}

func TestResolveRejectsBadTokens(t *testing.T) {
	tokens := []string{
		"",
		"2024",
		"2024-02-01",
		"1/2024",     // wrong length
		"13/2024",    // no 13th month
		"02/30/2023", // no 30th of February
		"ab/cdef",
		"02/29/2023", // not a leap year
		"12/2016 ",
	}
	for _, token := range tokens {
		if _, err := Resolve(token); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Resolve(%q) = %v, want ErrInvalidFormat", token, err)
		}
	}
}

func TestRangeDays(t *testing.T) {
	r := Range{Start: date(2024, time.February, 27), End: date(2024, time.March, 1)}
	days := r.Days()
	if len(days) != 4 {
		t.Fatalf("len(Days()) = %d, want 4", len(days))
	}
	want := []time.Time{
		date(2024, time.February, 27),
		date(2024, time.February, 28),
		date(2024, time.February, 29),
		date(2024, time.March, 1),
	}
	for i := range want {
		if !days[i].Equal(want[i]) {
			t.Errorf("Days()[%d] = %v, want %v", i, days[i], want[i])
		}
	}
}

func TestRangeDaysSingleDay(t *testing.T) {
	d := date(2025, time.April, 4)
	days := Range{Start: d, End: d}.Days()
	if len(days) != 1 || !days[0].Equal(d) {
		t.Errorf("Days() = %v, want exactly [%v]", days, d)
	}
}
