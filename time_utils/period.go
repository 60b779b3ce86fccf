package timeutils

import "time"

// Period represents an absolute period between two instants in time, e.g. "2023/10/19 16:00:00 to 2023/10/19 18:00:00".
// The Start is inclusive and the End is exclusive.
type Period struct {
	Start time.Time
	End   time.Time
}

// Hours returns the duration of the period expressed in hours.
func (p Period) Hours() float64 {
	return p.End.Sub(p.Start).Hours()
}

// Contains returns true if the given t is within the period, inclusive of Start and exclusive of End.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Overlap returns the portion of [start, end) that falls inside the period. A zero duration is
// returned when there is no overlap, including when end is before start.
func (p Period) Overlap(start, end time.Time) time.Duration {
	if start.Before(p.Start) {
		start = p.Start
	}
	if end.After(p.End) {
		end = p.End
	}
	overlap := end.Sub(start)
	if overlap < 0 {
		return 0
	}
	return overlap
}
