/*
availability.go - Conflict detection between a candidate and the ledger

BUFFER CONVENTION:
  Every occupying reservation owns [start, end+buffer). A candidate
  therefore conflicts with a stored reservation R iff

      candidate.Start < R.End + buffer  AND  R.Start < candidate.End + buffer

  which is the same as asking the ledger for raw intervals that overlap the
  candidate padded by the buffer on both sides. The rule is symmetric: A
  conflicts with B exactly when B would conflict with A.

  A candidate starting exactly buffer after an existing end is accepted;
  one minute earlier is rejected.

CALL SITES:
  - Advisory: FilterAvailable while offering slots (read-only)
  - Authoritative: DefaultLedger.Insert inside the store transaction
  Both go through Conflicts, so they cannot disagree.
*/
package schedule

import (
	"context"
	"time"
)

// ReservationQuery is the read side of the ledger the checker needs.
type ReservationQuery interface {
	QueryOverlapping(ctx context.Context, iv Interval, statuses []Status) ([]Reservation, error)
}

// Conflicts returns the occupying reservations that collide with candidate
// under the buffer convention.
func Conflicts(ctx context.Context, candidate Interval, buffer time.Duration, q ReservationQuery) ([]Reservation, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	return q.QueryOverlapping(ctx, candidate.Pad(buffer), OccupyingStatuses)
}

// HasConflict reports whether candidate collides with any occupying reservation.
func HasConflict(ctx context.Context, candidate Interval, buffer time.Duration, q ReservationQuery) (bool, error) {
	existing, err := Conflicts(ctx, candidate, buffer, q)
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

// Collides applies the buffer convention to two intervals directly.
func Collides(a, b Interval, buffer time.Duration) bool {
	return a.Pad(buffer).Overlaps(b)
}

// FilterAvailable drops slots that collide with occupying reservations.
// It issues one query covering all slots and filters in memory.
func FilterAvailable(ctx context.Context, slots []Interval, buffer time.Duration, q ReservationQuery) ([]Interval, error) {
	if len(slots) == 0 {
		return slots, nil
	}

	window := Interval{Start: slots[0].Start, End: slots[0].End}
	for _, s := range slots[1:] {
		if s.Start.Before(window.Start) {
			window.Start = s.Start
		}
		if s.End.After(window.End) {
			window.End = s.End
		}
	}

	existing, err := q.QueryOverlapping(ctx, window.Pad(buffer), OccupyingStatuses)
	if err != nil {
		return nil, err
	}

	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		free := true
		for _, r := range existing {
			if Collides(s, r.Interval, buffer) {
				free = false
				break
			}
		}
		if free {
			out = append(out, s)
		}
	}
	return out, nil
}
