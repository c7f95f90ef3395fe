package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Range is the lookback window, in months, applied before aggregation.
type Range int

const (
	Range3Months  Range = 3
	Range6Months  Range = 6
	Range12Months Range = 12
	Range24Months Range = 24
	Range60Months Range = 60
)

// DefaultRange is used when no or an unknown range is requested.
const DefaultRange = Range6Months

// Ranges returns the selectable ranges in ascending order.
func Ranges() []Range {
	return []Range{Range3Months, Range6Months, Range12Months, Range24Months, Range60Months}
}

// ParseRange parses a month count such as "12". Unknown values fall back to
// DefaultRange.
func ParseRange(s string) Range {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultRange
	}
	r := Range(n)
	if !r.Valid() {
		return DefaultRange
	}
	return r
}

// Valid reports whether r is one of the selectable ranges.
func (r Range) Valid() bool {
	for _, k := range Ranges() {
		if r == k {
			return true
		}
	}
	return false
}

// Months returns the window length in months.
func (r Range) Months() int {
	return int(r)
}

// Label returns the selector text for r.
func (r Range) Label() string {
	switch r {
	case Range24Months:
		return "Last 2 years"
	case Range60Months:
		return "Last 5 years"
	default:
		return fmt.Sprintf("Last %d months", int(r))
	}
}

// Cutoff returns midnight of the day r months before now. The day of month is
// clamped to the length of the target month, so 31 May minus 3 months is
// 28/29 February.
func (r Range) Cutoff(now time.Time) time.Time {
	return subMonths(now, r.Months())
}

func subMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// startOfMonth truncates t to midnight on the first of its month.
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
