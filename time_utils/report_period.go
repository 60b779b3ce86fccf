package timeutils

import (
	"fmt"
	"time"
)

// MonthPeriod returns the calendar month containing `t` in the given location, as UTC instants.
//
// For example, with `t` of "2023/10/19 16:53:00" in Warsaw the returned period runs from
// "2023/10/01 00:00 Warsaw" to "2023/11/01 00:00 Warsaw", both converted to UTC.
func MonthPeriod(t time.Time, location *time.Location) Period {
	t = t.In(location)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, location)
	return Period{
		Start: start.UTC(),
		End:   start.AddDate(0, 1, 0).UTC(),
	}
}

// DayPeriod returns the calendar day containing `t` in the given location, as UTC instants.
func DayPeriod(t time.Time, location *time.Location) Period {
	t = t.In(location)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, location)
	return Period{
		Start: start.UTC(),
		End:   start.AddDate(0, 0, 1).UTC(),
	}
}

// LastHourPeriod returns the sliding one hour window ending at `t`.
func LastHourPeriod(t time.Time) Period {
	t = t.UTC()
	return Period{
		Start: t.Add(-time.Hour),
		End:   t,
	}
}

// MonthLabel returns a human readable label for the month containing `t`, e.g. "2023-10".
func MonthLabel(t time.Time, location *time.Location) string {
	t = t.In(location)
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// DayLabel returns a human readable label for the day containing `t`, e.g. "2023-10-19".
func DayLabel(t time.Time, location *time.Location) string {
	t = t.In(location)
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}
