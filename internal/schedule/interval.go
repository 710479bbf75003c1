package schedule

import "time"

// Interval is a half-open [Start, End) time span in UTC.
// Touching endpoints do not overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// Overlaps reports whether two half-open spans share at least one instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether the point falls inside [Start, End).
func (i Interval) Contains(point time.Time) bool {
	return !point.Before(i.Start) && point.Before(i.End)
}

// DurationMinutes returns the span length in whole minutes.
func (i Interval) DurationMinutes() int {
	return int(i.End.Sub(i.Start) / time.Minute)
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}
