package domain

import (
	"fmt"
	"time"
)

// Period is a calendar span used for summary filters, boundaries included.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the period.
func (p Period) Contains(ts time.Time) bool {
	return !ts.Before(p.Start) && !ts.After(p.End)
}

// MonthPeriod spans one calendar month.
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// MonthOf formats the month key a transaction is attributed to.
func MonthOf(date time.Time) string {
	return date.Format("2006-01")
}

// ParseMonth validates a YYYY-MM key and returns the first day of the month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing month %q: %w", s, err)
	}
	return t, nil
}
