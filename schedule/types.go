/*
Package schedule provides the booking core for a single bookable room.

PURPOSE:
  This package contains the types and algorithms that decide which start
  times can be offered, whether a proposed booking collides with what is
  already on the calendar, and what a booking costs. Everything above it
  (HTTP, chat flows, operator commands) is a thin wrapper around these
  primitives.

KEY CONCEPTS IN THIS FILE (types.go):
  - Interval: Half-open [Start, End) span of absolute time
  - Status: Reservation lifecycle state
  - Reservation: A persisted booking or operator block
  - AddonSet: Order-independent set of selected surcharges

DESIGN PRINCIPLES:
  1. Absolute time inside, local wall-clock time at the boundary
  2. Precision: prices accumulate in decimal.Decimal, rounded once
  3. Stored intervals never include the buffer; the buffer is applied at
     check time, the same way for every caller
  4. The core holds no cross-call state

USAGE:
  iv, err := schedule.NewInterval(start, start.Add(time.Hour))
  price, err := pricer.Price(iv, schedule.NewAddonSet("squad"))

SEE ALSO:
  - calendar.go: TimeOfDay, BusinessDay, Clock
  - slots.go: Slot generation
  - pricing.go: Rate schedule and pricing
  - availability.go: Conflict detection
  - ledger.go: Reservation ledger interface
*/
package schedule

import (
	"sort"
	"strings"
	"time"
)

// =============================================================================
// INTERVAL - Half-open span of absolute time
// =============================================================================

// Interval is the half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval returns the interval [start, end) or ErrInvalidInterval when
// end is not after start.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// IntervalOf returns [start, start+d).
func IntervalOf(start time.Time, d time.Duration) (Interval, error) {
	return NewInterval(start, start.Add(d))
}

func (iv Interval) Validate() error {
	if !iv.End.After(iv.Start) {
		return &InvalidIntervalError{Start: iv.Start, End: iv.End}
	}
	return nil
}

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Overlaps reports whether the intervals share any instant.
// Touching endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return !(iv.End.Compare(other.Start) <= 0 || iv.Start.Compare(other.End) >= 0)
}

// Pad widens the interval by d on both sides.
func (iv Interval) Pad(d time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-d), End: iv.End.Add(d)}
}

// In converts both ends to loc.
func (iv Interval) In(loc *time.Location) Interval {
	return Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)}
}

func (iv Interval) String() string {
	return "[" + iv.Start.Format(time.RFC3339) + ", " + iv.End.Format(time.RFC3339) + ")"
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusBlocked   Status = "blocked"
)

// OccupyingStatuses are the statuses that hold time on the calendar.
// Cancelled reservations are kept for audit but never block anything.
var OccupyingStatuses = []Status{StatusPending, StatusConfirmed, StatusBlocked}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusBlocked:
		return true
	}
	return false
}

func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusBlocked
}

// CanTransition reports whether an operator may move a reservation from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed, StatusBlocked:
		return next == StatusCancelled
	}
	return false
}

// =============================================================================
// ADDONS - Order-independent surcharge selection
// =============================================================================

// AddonSet is a sorted set of surcharge keys. The zero value is empty.
type AddonSet struct {
	keys []string
}

func NewAddonSet(keys ...string) AddonSet {
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return AddonSet{keys: out}
}

// ParseAddonSet decodes the output of AddonSet.Encode. Element order is ignored.
func ParseAddonSet(s string) AddonSet {
	if s == "" {
		return AddonSet{}
	}
	return NewAddonSet(strings.Split(s, ",")...)
}

// Encode returns the canonical form: sorted keys joined by ",".
func (a AddonSet) Encode() string { return strings.Join(a.keys, ",") }

func (a AddonSet) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a AddonSet) Has(key string) bool {
	i := sort.SearchStrings(a.keys, key)
	return i < len(a.keys) && a.keys[i] == key
}

func (a AddonSet) Len() int                  { return len(a.keys) }
func (a AddonSet) Equal(other AddonSet) bool { return a.Encode() == other.Encode() }
func (a AddonSet) String() string            { return a.Encode() }

// With returns a copy with key added.
func (a AddonSet) With(key string) AddonSet { return NewAddonSet(append(a.Keys(), key)...) }

// Without returns a copy with key removed.
func (a AddonSet) Without(key string) AddonSet {
	var out []string
	for _, k := range a.keys {
		if k != key {
			out = append(out, k)
		}
	}
	return AddonSet{keys: out}
}

// =============================================================================
// RESERVATION
// =============================================================================

type ReservationID string

// Customer is opaque contact data captured by the booking flow.
type Customer struct {
	Handle string // chat handle or client reference
	Name   string
	Phone  string
}

// Reservation is one row of the ledger. Interval is the booked span
// without the buffer.
type Reservation struct {
	ID        ReservationID
	Interval  Interval
	Status    Status
	Price     int64
	Addons    AddonSet
	Customer  Customer
	Note      string
	CreatedAt time.Time
}

func (r Reservation) Duration() time.Duration { return r.Interval.Duration() }

func (r Reservation) DurationMinutes() int { return int(r.Interval.Duration() / time.Minute) }
