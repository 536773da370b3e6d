/*
pricing.go - Time-of-day rate schedule and booking prices

PURPOSE:
  Computes the integer price of a booking from a rate schedule that splits
  the 24h cycle into local time-of-day bands, plus optional surcharges.

ALGORITHM:
  Closed-form band overlap. For every band instance that can touch the
  booking (one per local date, starting the day before the booking so that
  bands wrapping past midnight are seen), the overlap length is multiplied
  by the band's hourly rate. The weighted seconds are summed as decimals,
  divided by 3600 once, surcharges are added, and the total is rounded once.

  Rounding per minute would drift: 30 minutes at 400/h is 199.99... when
  each minute is 6.67, but exactly 200 here.

BAND MEMBERSHIP:
  Bands are evaluated on a modular 24h clock. A band whose end is at or
  before its start wraps past midnight (18:00-02:00 covers 23:30 and 01:00).

SURCHARGES:
  - per_minute: a rate added across the whole booked duration
  - flat: a constant added once, regardless of duration
  Surcharges sharing a Group are mutually exclusive.

EXAMPLE:
  rates 400/h (13-18) and 500/h (18-13), squad +100/h, headsets +150:
    17:00-19:00, squad          -> 400 + 500 + 200      = 1100
    17:00-19:00, squad+headsets -> 1100 + 150           = 1250

SEE ALSO:
  - factory/rules.go: Builds RateSchedule and Surcharges from JSON
*/
package schedule

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// =============================================================================
// RATE
// =============================================================================

// Rate is a price per unit of time, held as an amount per hour.
type Rate struct {
	perHour decimal.Decimal
}

func PerHour(amount int64) Rate            { return Rate{perHour: decimal.NewFromInt(amount)} }
func PerHourDecimal(d decimal.Decimal) Rate { return Rate{perHour: d} }
func PerMinute(d decimal.Decimal) Rate      { return Rate{perHour: d.Mul(decimal.NewFromInt(60))} }

func (r Rate) Hourly() decimal.Decimal    { return r.perHour }
func (r Rate) PerMinute() decimal.Decimal { return r.perHour.Div(decimal.NewFromInt(60)) }
func (r Rate) IsNegative() bool           { return r.perHour.IsNegative() }

// weighted returns rate-per-hour times seconds. Divide by 3600 for money.
func (r Rate) weighted(d time.Duration) decimal.Decimal {
	return r.perHour.Mul(decimal.NewFromInt(int64(d / time.Second)))
}

// =============================================================================
// RATE SCHEDULE
// =============================================================================

// RateBand is [Start, End) on the local 24h cycle. End <= Start wraps past midnight.
type RateBand struct {
	Start TimeOfDay
	End   TimeOfDay
	Rate  Rate
}

func (b RateBand) Length() time.Duration { return b.Start.Until(b.End) }

// Contains evaluates membership on the modular clock.
func (b RateBand) Contains(t TimeOfDay) bool {
	if b.Start < b.End {
		return t >= b.Start && t < b.End
	}
	return t >= b.Start || t < b.End
}

// instance returns the absolute span of the band that starts on the given date.
func (b RateBand) instance(date time.Time, loc *time.Location) Interval {
	y, m, d := date.Date()
	start := b.Start.On(y, m, d, loc)
	endDay := d
	if b.End <= b.Start {
		endDay++
	}
	return Interval{Start: start, End: b.End.On(y, m, endDay, loc)}
}

// RateSchedule is a validated partition of the local day into bands.
type RateSchedule struct {
	bands []RateBand
}

// NewRateSchedule checks that the bands are contiguous, do not overlap, and
// cover every time of day exactly once.
func NewRateSchedule(bands []RateBand) (RateSchedule, error) {
	if len(bands) == 0 {
		return RateSchedule{}, configErrorf("rate_bands", "at least one band is required")
	}

	sorted := make([]RateBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var total time.Duration
	for i, b := range sorted {
		if !b.Start.Valid() || !b.End.Valid() {
			return RateSchedule{}, configErrorf("rate_bands", "band %s-%s is outside the 24h clock", b.Start, b.End)
		}
		if b.Rate.IsNegative() {
			return RateSchedule{}, configErrorf("rate_bands", "band %s-%s has a negative rate", b.Start, b.End)
		}
		if i > 0 && sorted[i-1].Start == b.Start {
			return RateSchedule{}, configErrorf("rate_bands", "bands starting at %s overlap", b.Start)
		}
		next := sorted[(i+1)%len(sorted)]
		if b.End != next.Start {
			if len(sorted) > 1 && b.Start.Until(b.End) > b.Start.Until(next.Start) {
				return RateSchedule{}, configErrorf("rate_bands", "band %s-%s overlaps band starting at %s", b.Start, b.End, next.Start)
			}
			return RateSchedule{}, configErrorf("rate_bands", "gap between %s and %s", b.End, next.Start)
		}
		total += b.Length()
	}
	if total != 24*time.Hour {
		return RateSchedule{}, configErrorf("rate_bands", "bands cover %s, want 24h", total)
	}

	return RateSchedule{bands: sorted}, nil
}

// MustRateSchedule panics on invalid bands. For presets and tests.
func MustRateSchedule(bands ...RateBand) RateSchedule {
	rs, err := NewRateSchedule(bands)
	if err != nil {
		panic(err)
	}
	return rs
}

func (rs RateSchedule) Bands() []RateBand {
	out := make([]RateBand, len(rs.bands))
	copy(out, rs.bands)
	return out
}

// RateAt returns the rate in force at the local time of t.
func (rs RateSchedule) RateAt(t time.Time) Rate {
	tod := TimeOfDayOf(t)
	for _, b := range rs.bands {
		if b.Contains(tod) {
			return b.Rate
		}
	}
	return Rate{}
}

// weighted sums rate*seconds over the interval in the given zone.
func (rs RateSchedule) weighted(iv Interval, loc *time.Location) decimal.Decimal {
	total := decimal.Zero
	local := iv.In(loc)

	first := time.Date(local.Start.Year(), local.Start.Month(), local.Start.Day()-1, 0, 0, 0, 0, loc)
	last := time.Date(local.End.Year(), local.End.Month(), local.End.Day(), 0, 0, 0, 0, loc)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		for _, b := range rs.bands {
			total = total.Add(b.Rate.weighted(overlap(iv, b.instance(day, loc))))
		}
	}
	return total
}

func overlap(a, b Interval) time.Duration {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// =============================================================================
// SURCHARGES
// =============================================================================

type SurchargeKind string

const (
	SurchargeFlat      SurchargeKind = "flat"
	SurchargePerMinute SurchargeKind = "per_minute"
)

// Surcharge is an optional addon priced on top of the base rate.
type Surcharge struct {
	Key   string
	Group string // non-empty: at most one key of the group may be selected
	Kind  SurchargeKind
	Rate  Rate            // for SurchargePerMinute
	Flat  decimal.Decimal // for SurchargeFlat
}

// =============================================================================
// PRICER
// =============================================================================

// Pricer prices intervals. It is pure and safe for concurrent use.
type Pricer struct {
	Schedule   RateSchedule
	Surcharges []Surcharge
	Location   *time.Location
}

func NewPricer(schedule RateSchedule, surcharges []Surcharge, loc *time.Location) *Pricer {
	return &Pricer{Schedule: schedule, Surcharges: surcharges, Location: loc}
}

// Price returns the total in whole currency units.
func (p *Pricer) Price(iv Interval, addons AddonSet) (int64, error) {
	total, err := p.Exact(iv, addons)
	if err != nil {
		return 0, err
	}
	return total.RoundBank(0).IntPart(), nil
}

// Exact returns the unrounded total.
func (p *Pricer) Exact(iv Interval, addons AddonSet) (decimal.Decimal, error) {
	if err := iv.Validate(); err != nil {
		return decimal.Zero, err
	}
	selected, err := p.Resolve(addons)
	if err != nil {
		return decimal.Zero, err
	}

	weighted := p.Schedule.weighted(iv, p.location())
	flat := decimal.Zero
	for _, s := range selected {
		switch s.Kind {
		case SurchargePerMinute:
			weighted = weighted.Add(s.Rate.weighted(iv.Duration()))
		case SurchargeFlat:
			flat = flat.Add(s.Flat)
		}
	}
	return weighted.Div(secondsPerHour).Add(flat), nil
}

// Resolve maps addon keys to surcharges and enforces group exclusivity.
func (p *Pricer) Resolve(addons AddonSet) ([]Surcharge, error) {
	byKey := make(map[string]Surcharge, len(p.Surcharges))
	for _, s := range p.Surcharges {
		byKey[s.Key] = s
	}

	groups := make(map[string]string)
	out := make([]Surcharge, 0, addons.Len())
	for _, k := range addons.Keys() {
		s, ok := byKey[k]
		if !ok {
			return nil, &AddonError{Key: k, Reason: "unknown addon"}
		}
		if s.Group != "" {
			if prev, taken := groups[s.Group]; taken {
				return nil, &AddonError{Key: k, Reason: "conflicts with " + prev + " in group " + s.Group}
			}
			groups[s.Group] = k
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *Pricer) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
