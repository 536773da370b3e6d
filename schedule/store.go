/*
store.go - Persistence interface for reservations

PURPOSE:
  Defines the interface between the booking core and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Reservation persistence (append, query, status change)
  TxStore: Store plus an atomic unit of work

WRITE CONTRACT:
  - Append(): new reservation row
  - SetStatus(): the only mutation of an existing row
  - NO Delete. Cancelled rows stay for audit.

ATOMIC CHECK-AND-INSERT:
  WithTx() must serialize against every other WithTx() on the same store.
  DefaultLedger re-checks conflicts and appends inside one WithTx(), so two
  racing bookings for the same slot cannot both commit.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite, database transaction under a writer lock
  - schedule/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package schedule

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for reservation persistence
// =============================================================================

type Store interface {
	// Append persists a new reservation. The id must be unique.
	Append(ctx context.Context, r Reservation) error

	// Get returns the reservation or ErrNotFound.
	Get(ctx context.Context, id ReservationID) (Reservation, error)

	// QueryOverlapping returns reservations with a status in statuses whose
	// stored interval overlaps iv, ordered by start.
	QueryOverlapping(ctx context.Context, iv Interval, statuses []Status) ([]Reservation, error)

	// List returns reservations matching the filter.
	List(ctx context.Context, filter ListFilter) ([]Reservation, error)

	// SetStatus overwrites the status of an existing reservation, or ErrNotFound.
	SetStatus(ctx context.Context, id ReservationID, status Status) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// ListFilter selects reservations by start instant, status and customer.
type ListFilter struct {
	From           *time.Time // start >= From
	To             *time.Time // start < To
	Statuses       []Status   // empty means any
	CustomerHandle string
	Newest         bool // order by start descending
	Limit          int  // 0 means no limit
}

// Match applies the filter to one reservation. Limit and order are not checked.
func (f ListFilter) Match(r Reservation) bool {
	if f.From != nil && r.Interval.Start.Before(*f.From) {
		return false
	}
	if f.To != nil && !r.Interval.Start.Before(*f.To) {
		return false
	}
	if f.CustomerHandle != "" && r.Customer.Handle != f.CustomerHandle {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}
