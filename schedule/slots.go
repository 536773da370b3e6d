package schedule

import "time"

// GenerateSlots enumerates candidate bookings on a fixed grid.
//
// Candidates start at the day's opening and advance by step. Generation stops
// as soon as start+duration+buffer passes the closing instant, so the buffer
// always fits before close. The buffer is not part of the returned intervals.
//
// The result is ordered earliest first and may be empty; an empty result is
// not an error. Non-positive duration or step yields no slots.
func GenerateSlots(day BusinessDay, duration, buffer, step time.Duration) []Interval {
	if duration <= 0 || step <= 0 || buffer < 0 {
		return nil
	}

	closing := day.Closing()
	var slots []Interval
	for start := day.Opening(); !start.Add(duration + buffer).After(closing); start = start.Add(step) {
		slots = append(slots, Interval{Start: start, End: start.Add(duration)})
	}
	return slots
}

// FilterPast drops slots that start before now.
func FilterPast(slots []Interval, now time.Time) []Interval {
	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		if s.Start.Before(now) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// OnGrid reports whether start is one of the candidate starts of day for step.
func OnGrid(day BusinessDay, start time.Time, step time.Duration) bool {
	if step <= 0 {
		return false
	}
	offset := start.Sub(day.Opening())
	return offset >= 0 && offset%step == 0
}
