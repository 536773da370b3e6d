/*
errors.go - Centralized error types for the booking core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is against the sentinels; the structured
  errors carry the details needed for a user-facing message.

ERROR CATEGORIES:
  1. Input errors - invalid intervals, unknown addons
  2. Ledger errors - conflicts, missing reservations, bad transitions
  3. Configuration errors - malformed rate schedules and rules (fatal)

NOT AN ERROR:
  An empty slot list is a valid result. Callers check len(slots) == 0.

SEE ALSO:
  - ledger.go: Returns ConflictError, ErrNotFound, ErrInvalidTransition
  - pricing.go: Returns InvalidIntervalError, AddonError
  - factory/rules.go: Returns ConfigurationError
*/
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned when end <= start or a duration is not positive.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrConflict is returned when a commit-time re-check finds the interval occupied.
	ErrConflict = errors.New("interval already occupied")

	// ErrNotFound is returned when a reservation id does not exist.
	ErrNotFound = errors.New("reservation not found")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidAddon is returned for an unknown addon key or two keys of one exclusive group.
	ErrInvalidAddon = errors.New("invalid addon selection")

	// ErrConfiguration is returned when rules are malformed. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidIntervalError describes a rejected interval.
type InvalidIntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *InvalidIntervalError) Unwrap() error { return ErrInvalidInterval }

// ConflictError reports the reservations that occupy the requested interval.
type ConflictError struct {
	Requested Interval
	Existing  []Reservation
}

func (e *ConflictError) Error() string {
	if len(e.Existing) == 0 {
		return fmt.Sprintf("interval %s already occupied", e.Requested)
	}
	return fmt.Sprintf("interval %s already occupied by %s (%s)",
		e.Requested, e.Existing[0].ID, e.Existing[0].Status)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransitionError reports a forbidden status change.
type TransitionError struct {
	ID   ReservationID
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("reservation %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// AddonError reports a rejected addon selection.
type AddonError struct {
	Key    string
	Reason string
}

func (e *AddonError) Error() string {
	return fmt.Sprintf("addon %q: %s", e.Key, e.Reason)
}

func (e *AddonError) Unwrap() error { return ErrInvalidAddon }

// ConfigurationError reports a malformed rule set.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict returns true if the slot was taken by someone else.
// Callers should re-offer slots, not retry blindly.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidAddon) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing reservation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
