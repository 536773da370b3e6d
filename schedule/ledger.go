/*
ledger.go - Authoritative store of reservations

PURPOSE:
  The Ledger owns every reservation record. Booking flows read from it to
  filter offers and append to it to commit; the operator layer uses it for
  status transitions.

CRITICAL INVARIANTS:
  1. NO DOUBLE BOOKING: once the buffer is applied, at most one occupying
     reservation holds any instant
  2. CHECK-THEN-INSERT IS ATOMIC: the conflict re-check and the insert run
     in one store transaction
  3. NO DELETE: cancellation is a status change; the row stays for audit
  4. LIFECYCLE: pending -> confirmed | cancelled, confirmed -> cancelled,
     blocked -> cancelled. Nothing else.

RACE WINDOW:
  Offering a slot is advisory. Between the offer and the commit another
  booking may land. Insert re-evaluates the same conflict rule inside the
  transaction and fails fast with ConflictError; callers re-offer slots,
  they never wait.

SEE ALSO:
  - store.go: Low-level persistence interface
  - availability.go: The conflict rule shared with the advisory check
*/
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger interface {
	ReservationQuery

	// Insert appends r after an atomic conflict re-check and returns its id.
	// Fails with *ConflictError if the interval is occupied at commit time.
	Insert(ctx context.Context, r Reservation) (ReservationID, error)

	// UpdateStatus applies a lifecycle transition. ErrNotFound or ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id ReservationID, status Status) (Reservation, error)

	Get(ctx context.Context, id ReservationID) (Reservation, error)
	List(ctx context.Context, filter ListFilter) ([]Reservation, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using TxStore
// =============================================================================

type DefaultLedger struct {
	Store  TxStore
	Buffer time.Duration
	Now    func() time.Time
}

func NewLedger(store TxStore, buffer time.Duration) *DefaultLedger {
	return &DefaultLedger{Store: store, Buffer: buffer, Now: time.Now}
}

func (l *DefaultLedger) QueryOverlapping(ctx context.Context, iv Interval, statuses []Status) ([]Reservation, error) {
	return l.Store.QueryOverlapping(ctx, iv, statuses)
}

func (l *DefaultLedger) Insert(ctx context.Context, r Reservation) (ReservationID, error) {
	if err := r.Interval.Validate(); err != nil {
		return "", err
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.Occupies() {
		return "", fmt.Errorf("insert with status %s: %w", r.Status, ErrInvalidTransition)
	}
	if r.ID == "" {
		r.ID = ReservationID(uuid.NewString())
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now()
	}

	err := l.Store.WithTx(ctx, func(tx Store) error {
		// Final check inside the transaction closes the offer/commit race
		existing, err := Conflicts(ctx, r.Interval, l.Buffer, tx)
		if err != nil {
			return fmt.Errorf("conflict check failed: %w", err)
		}
		if len(existing) > 0 {
			return &ConflictError{Requested: r.Interval, Existing: existing}
		}
		return tx.Append(ctx, r)
	})
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

func (l *DefaultLedger) UpdateStatus(ctx context.Context, id ReservationID, status Status) (Reservation, error) {
	var updated Reservation
	err := l.Store.WithTx(ctx, func(tx Store) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == status {
			updated = r
			return nil
		}
		if !r.Status.CanTransition(status) {
			return &TransitionError{ID: id, From: r.Status, To: status}
		}
		if err := tx.SetStatus(ctx, id, status); err != nil {
			return err
		}
		r.Status = status
		updated = r
		return nil
	})
	return updated, err
}

func (l *DefaultLedger) Get(ctx context.Context, id ReservationID) (Reservation, error) {
	return l.Store.Get(ctx, id)
}

func (l *DefaultLedger) List(ctx context.Context, filter ListFilter) ([]Reservation, error) {
	return l.Store.List(ctx, filter)
}

func (l *DefaultLedger) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}
