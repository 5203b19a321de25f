package returns

import (
	"fmt"
	"sort"
	"time"
)

// DateFormat is the canonical date layout used across the return log,
// provider responses, and exported reports.
const DateFormat = "2006-01-02"

// DailyReturn is a single day's fractional return (0.002 = 0.2%).
type DailyReturn struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a date-ordered sequence of daily returns for one instrument.
type Series []DailyReturn

// Sort orders the series by ascending date in place.
func (s Series) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Date.Before(s[j].Date)
	})
}

// Validate checks the series invariant: unique calendar dates. The series
// does not need to be pre-sorted.
func (s Series) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, r := range s {
		key := r.Date.Format(DateFormat)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate date %s in return series", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Span returns the first and last dates of the series once sorted.
// ok is false for an empty series.
func (s Series) Span() (start, end time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end = s[0].Date, s[0].Date
	for _, r := range s[1:] {
		if r.Date.Before(start) {
			start = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
	}
	return start, end, true
}

// Values returns the return values in series order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.Value
	}
	return out
}

// Day truncates a timestamp to its calendar day in UTC. All dates in the
// log store and provider responses are day-granular.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
