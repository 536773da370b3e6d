package schedule

import (
	"time"
)

// Rules is the full parameter set of the booking core. Nothing in the core
// hardcodes opening hours, grid, buffer, rates or surcharges.
type Rules struct {
	Hours       Hours
	Step        time.Duration
	Buffer      time.Duration
	Durations   []time.Duration // durations offered to customers; empty means any multiple of Step
	HorizonDays int             // bookable days starting today; 0 means unlimited
	Location    *time.Location
	Schedule    RateSchedule
	Surcharges  []Surcharge
}

// Validate reports the first structural problem as a *ConfigurationError.
func (r Rules) Validate() error {
	if !r.Hours.Open.Valid() || !r.Hours.Close.Valid() {
		return configErrorf("hours", "open %s / close %s outside the 24h clock", r.Hours.Open, r.Hours.Close)
	}
	if r.Step <= 0 {
		return configErrorf("step_minutes", "must be positive")
	}
	if r.Buffer < 0 {
		return configErrorf("buffer_minutes", "must not be negative")
	}
	if r.HorizonDays < 0 {
		return configErrorf("horizon_days", "must not be negative")
	}
	if r.Location == nil {
		return configErrorf("timezone", "is required")
	}
	for _, d := range r.Durations {
		if d <= 0 {
			return configErrorf("durations", "%s is not positive", d)
		}
		if d+r.Buffer > r.Hours.Span() {
			return configErrorf("durations", "%s plus buffer does not fit in the %s window", d, r.Hours.Span())
		}
	}
	if len(r.Schedule.bands) == 0 {
		return configErrorf("rate_bands", "rate schedule is empty")
	}

	seen := make(map[string]bool)
	for _, s := range r.Surcharges {
		if s.Key == "" {
			return configErrorf("surcharges", "surcharge key is required")
		}
		if seen[s.Key] {
			return configErrorf("surcharges", "duplicate key %q", s.Key)
		}
		seen[s.Key] = true
		switch s.Kind {
		case SurchargeFlat:
			if s.Flat.IsNegative() {
				return configErrorf("surcharges", "%q has a negative amount", s.Key)
			}
		case SurchargePerMinute:
			if s.Rate.IsNegative() {
				return configErrorf("surcharges", "%q has a negative rate", s.Key)
			}
		default:
			return configErrorf("surcharges", "%q has unknown kind %q", s.Key, s.Kind)
		}
	}
	return nil
}

// Day returns the business day opening on the local date of date.
func (r Rules) Day(date time.Time) BusinessDay {
	return NewBusinessDay(date, r.Location, r.Hours)
}

// Pricer builds a pricer for these rules.
func (r Rules) Pricer() *Pricer {
	return NewPricer(r.Schedule, r.Surcharges, r.Location)
}

// Slots generates the grid of the given day for duration.
func (r Rules) Slots(day BusinessDay, duration time.Duration) []Interval {
	return GenerateSlots(day, duration, r.Buffer, r.Step)
}

// AllowsDuration reports whether d is offered.
func (r Rules) AllowsDuration(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	if len(r.Durations) == 0 {
		return d%r.Step == 0
	}
	for _, allowed := range r.Durations {
		if allowed == d {
			return true
		}
	}
	return false
}

// Surcharge looks up a surcharge by key.
func (r Rules) Surcharge(key string) (Surcharge, bool) {
	for _, s := range r.Surcharges {
		if s.Key == key {
			return s, true
		}
	}
	return Surcharge{}, false
}
