/*
service.go - Booking flow for the game room

PURPOSE:
  Glues the booking core together for one room: which dates can be booked,
  which start times are free, what a draft costs, and committing it.
  Also carries the operator actions (block, confirm, cancel, agenda).

FLOW:
  1. Days()                  -> bookable dates
  2. Offer(date, duration)   -> free start times (advisory check)
  3. Quote(draft)            -> interval and price
  4. Commit(draft)           -> pending reservation (authoritative check)
     On a lost race the caller gets SlotTakenError with a fresh offer
     and must ask the customer to choose again.

STATE:
  The service is stateless between calls. Drafts belong to the caller.

SEE ALSO:
  - draft.go: Draft
  - schedule/ledger.go: Atomic check-and-insert
*/
package gameroom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/gameroom-engine/schedule"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrPastDay             = errors.New("day has already closed")
	ErrOutsideHorizon      = errors.New("day is beyond the booking horizon")
	ErrUnsupportedDuration = errors.New("duration is not offered")
	ErrOffGrid             = errors.New("start time is not an offered slot")
	ErrIncompleteDraft     = errors.New("draft is missing date, duration or start")
)

// SlotTakenError is returned by Commit when another booking won the race.
// Offer is the current list of free slots for the same day and duration.
type SlotTakenError struct {
	Conflict *schedule.ConflictError
	Offer    []schedule.Interval
}

func (e *SlotTakenError) Error() string {
	return "slot was just taken, choose another time: " + e.Conflict.Error()
}

func (e *SlotTakenError) Unwrap() error { return e.Conflict }

// IsClientError returns true for errors caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPastDay) ||
		errors.Is(err, ErrOutsideHorizon) ||
		errors.Is(err, ErrUnsupportedDuration) ||
		errors.Is(err, ErrOffGrid) ||
		errors.Is(err, ErrIncompleteDraft) ||
		schedule.IsClientError(err)
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Rules    schedule.Rules
	Ledger   schedule.Ledger
	Clock    schedule.Clock
	Notifier Notifier
	Logger   *zap.Logger

	pricer *schedule.Pricer
}

func NewService(rules schedule.Rules, ledger schedule.Ledger, clock schedule.Clock, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger, Location: rules.Location}
	}
	return &Service{
		Rules:    rules,
		Ledger:   ledger,
		Clock:    clock,
		Notifier: notifier,
		Logger:   logger,
		pricer:   rules.Pricer(),
	}
}

// Quote is the priced form of a draft.
type Quote struct {
	Interval schedule.Interval
	Addons   schedule.AddonSet
	Price    int64
}

// Days returns the dates that can still be booked, earliest first. The
// previous date is included while its window is still open past midnight.
func (s *Service) Days() []schedule.BusinessDay {
	now := s.Clock.Now()
	today := s.Rules.Day(schedule.Today(s.Clock))

	var days []schedule.BusinessDay
	if yesterday := s.Rules.Day(today.Date.AddDate(0, 0, -1)); !yesterday.IsPast(now) {
		days = append(days, yesterday)
	}
	n := s.Rules.HorizonDays
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		days = append(days, s.Rules.Day(today.Date.AddDate(0, 0, i)))
	}
	return days
}

// Offer returns the free slots of date for duration. An empty result means
// nothing is available and is not an error.
func (s *Service) Offer(ctx context.Context, date time.Time, duration time.Duration) ([]schedule.Interval, error) {
	day := s.Rules.Day(date)
	if err := s.checkDay(day); err != nil {
		return nil, err
	}
	if !s.Rules.AllowsDuration(duration) {
		return nil, fmt.Errorf("%s: %w", duration, ErrUnsupportedDuration)
	}

	slots := schedule.FilterPast(s.Rules.Slots(day, duration), s.Clock.Now())
	return schedule.FilterAvailable(ctx, slots, s.Rules.Buffer, s.Ledger)
}

// Quote prices a draft without touching the ledger.
func (s *Service) Quote(d *Draft) (Quote, error) {
	iv, err := d.Interval()
	if err != nil {
		return Quote{}, err
	}
	price, err := s.pricer.Price(iv, d.Addons)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Interval: iv, Addons: d.Addons, Price: price}, nil
}

// Commit turns a draft into a pending reservation.
func (s *Service) Commit(ctx context.Context, d *Draft) (schedule.Reservation, error) {
	if d.Date.IsZero() {
		return schedule.Reservation{}, ErrIncompleteDraft
	}
	day := s.Rules.Day(d.Date)
	if err := s.checkDay(day); err != nil {
		return schedule.Reservation{}, err
	}
	if !s.Rules.AllowsDuration(d.Duration) {
		return schedule.Reservation{}, fmt.Errorf("%s: %w", d.Duration, ErrUnsupportedDuration)
	}

	q, err := s.Quote(d)
	if err != nil {
		return schedule.Reservation{}, err
	}
	if !s.offered(day, q.Interval) {
		return schedule.Reservation{}, fmt.Errorf("%s: %w", q.Interval.Start.In(s.Rules.Location).Format("15:04"), ErrOffGrid)
	}

	r := schedule.Reservation{
		ID:        schedule.ReservationID(uuid.NewString()),
		Interval:  q.Interval,
		Status:    schedule.StatusPending,
		Price:     q.Price,
		Addons:    q.Addons,
		Customer:  d.Customer,
		CreatedAt: s.Clock.Now(),
	}
	if _, err := s.Ledger.Insert(ctx, r); err != nil {
		var conflict *schedule.ConflictError
		if errors.As(err, &conflict) {
			s.Logger.Info("slot taken at commit",
				zap.String("start", q.Interval.Start.Format(time.RFC3339)),
				zap.Int("duration_min", int(d.Duration/time.Minute)))
			offer, offerErr := s.Offer(ctx, d.Date, d.Duration)
			if offerErr != nil {
				return schedule.Reservation{}, offerErr
			}
			return schedule.Reservation{}, &SlotTakenError{Conflict: conflict, Offer: offer}
		}
		return schedule.Reservation{}, err
	}

	if err := s.Notifier.Notify(ctx, r); err != nil {
		s.Logger.Warn("operator notification failed", zap.String("id", string(r.ID)), zap.Error(err))
	}
	return r, nil
}

// offered reports whether iv is one of the grid slots of day that has not started.
func (s *Service) offered(day schedule.BusinessDay, iv schedule.Interval) bool {
	if !schedule.OnGrid(day, iv.Start, s.Rules.Step) {
		return false
	}
	if iv.End.Add(s.Rules.Buffer).After(day.Closing()) {
		return false
	}
	return !iv.Start.Before(s.Clock.Now())
}

func (s *Service) checkDay(day schedule.BusinessDay) error {
	if day.IsPast(s.Clock.Now()) {
		return fmt.Errorf("%s: %w", day, ErrPastDay)
	}
	if s.Rules.HorizonDays > 0 {
		last := schedule.Today(s.Clock).AddDate(0, 0, s.Rules.HorizonDays-1)
		if day.Date.After(last) {
			return fmt.Errorf("%s: %w", day, ErrOutsideHorizon)
		}
	}
	return nil
}

// =============================================================================
// OPERATOR ACTIONS
// =============================================================================

// Block reserves time for maintenance. Blocks are free and follow the same
// conflict rule as bookings.
func (s *Service) Block(ctx context.Context, start time.Time, duration time.Duration, note string) (schedule.Reservation, error) {
	iv, err := schedule.IntervalOf(start, duration)
	if err != nil {
		return schedule.Reservation{}, err
	}
	r := schedule.Reservation{
		ID:        schedule.ReservationID(uuid.NewString()),
		Interval:  iv,
		Status:    schedule.StatusBlocked,
		Note:      note,
		CreatedAt: s.Clock.Now(),
	}
	if _, err := s.Ledger.Insert(ctx, r); err != nil {
		return schedule.Reservation{}, err
	}
	s.Logger.Info("time blocked", zap.String("id", string(r.ID)), zap.Stringer("interval", iv))
	return r, nil
}

func (s *Service) Confirm(ctx context.Context, id schedule.ReservationID) (schedule.Reservation, error) {
	return s.transition(ctx, id, schedule.StatusConfirmed)
}

func (s *Service) Cancel(ctx context.Context, id schedule.ReservationID) (schedule.Reservation, error) {
	return s.transition(ctx, id, schedule.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id schedule.ReservationID, status schedule.Status) (schedule.Reservation, error) {
	r, err := s.Ledger.UpdateStatus(ctx, id, status)
	if err != nil {
		return schedule.Reservation{}, err
	}
	s.Logger.Info("reservation status changed", zap.String("id", string(id)), zap.String("status", string(status)))
	return r, nil
}

// Agenda lists every reservation starting in [from, to), including cancelled ones.
func (s *Service) Agenda(ctx context.Context, from, to time.Time) ([]schedule.Reservation, error) {
	return s.Ledger.List(ctx, schedule.ListFilter{From: &from, To: &to})
}

// CustomerReservations returns a customer's latest non-cancelled reservations.
func (s *Service) CustomerReservations(ctx context.Context, handle string) ([]schedule.Reservation, error) {
	return s.Ledger.List(ctx, schedule.ListFilter{
		CustomerHandle: handle,
		Statuses:       schedule.OccupyingStatuses,
		Newest:         true,
		Limit:          10,
	})
}
