/*
Package factory provides JSON to Go booking rules conversion.

PURPOSE:
  Converts a JSON rules document into schedule.Rules. This enables changing
  opening hours, the slot grid, the buffer, rate bands and surcharges
  without code changes.

JSON SCHEMA:
  {
    "timezone": "Europe/Moscow",
    "open_time": "13:00",
    "close_time": "02:00",
    "step_minutes": 60,
    "buffer_minutes": 10,
    "durations": [60, 90, 120],
    "horizon_days": 7,
    "rate_bands": [
      {"start": "13:00", "end": "18:00", "hourly_rate": "400"},
      {"start": "18:00", "end": "13:00", "hourly_rate": "500"}
    ],
    "surcharges": [
      {"key": "duo", "group": "gamepads", "kind": "flat", "amount": "0"},
      {"key": "squad", "group": "gamepads", "kind": "per_minute", "hourly_rate": "100"},
      {"key": "headsets", "kind": "flat", "amount": "150"}
    ]
  }

  A band or per_minute surcharge may give "per_minute_rate" instead of
  "hourly_rate". Amounts are decimal strings or numbers.

VALIDATION:
  Every problem is a *schedule.ConfigurationError. Rate bands must be
  contiguous, must not overlap, and must cover the whole day. A malformed
  document is fatal at startup; the system must not silently mis-price.

USAGE:
  f := factory.NewRulesFactory()
  rules, err := f.ParseRules(gameroom.DefaultRulesJSON())

SEE ALSO:
  - schedule/rules.go: Rules type and Validate
  - gameroom/presets.go: The game room's rules document
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/gameroom-engine/schedule"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RulesJSON is the JSON representation of the booking rules.
type RulesJSON struct {
	Timezone      string          `json:"timezone"`
	OpenTime      string          `json:"open_time"`
	CloseTime     string          `json:"close_time"`
	StepMinutes   int             `json:"step_minutes"`
	BufferMinutes int             `json:"buffer_minutes"`
	Durations     []int           `json:"durations,omitempty"`
	HorizonDays   int             `json:"horizon_days,omitempty"`
	RateBands     []RateBandJSON  `json:"rate_bands"`
	Surcharges    []SurchargeJSON `json:"surcharges,omitempty"`
}

// RateBandJSON is one time-of-day band.
type RateBandJSON struct {
	Start         string           `json:"start"`
	End           string           `json:"end"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate,omitempty"`
	PerMinuteRate *decimal.Decimal `json:"per_minute_rate,omitempty"`
}

// SurchargeJSON is one addon rule.
type SurchargeJSON struct {
	Key           string           `json:"key"`
	Group         string           `json:"group,omitempty"`
	Kind          string           `json:"kind"` // flat, per_minute
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate,omitempty"`
	PerMinuteRate *decimal.Decimal `json:"per_minute_rate,omitempty"`
}

// =============================================================================
// RULES FACTORY
// =============================================================================

type RulesFactory struct {
	// LoadLocation resolves the timezone name. Defaults to time.LoadLocation.
	LoadLocation func(name string) (*time.Location, error)
}

func NewRulesFactory() *RulesFactory {
	return &RulesFactory{LoadLocation: time.LoadLocation}
}

// ParseRulesFile reads and parses a rules document from disk.
func (f *RulesFactory) ParseRulesFile(path string) (schedule.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schedule.Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return f.ParseRules(string(data))
}

// ParseRules parses a JSON string into validated rules.
func (f *RulesFactory) ParseRules(jsonStr string) (schedule.Rules, error) {
	var rj RulesJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return schedule.Rules{}, &schedule.ConfigurationError{Field: "document", Reason: err.Error()}
	}
	return f.CreateRules(rj)
}

// CreateRules converts the JSON structure into validated rules.
func (f *RulesFactory) CreateRules(rj RulesJSON) (schedule.Rules, error) {
	var rules schedule.Rules

	tz := rj.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := f.loadLocation(tz)
	if err != nil {
		return rules, &schedule.ConfigurationError{Field: "timezone", Reason: err.Error()}
	}
	rules.Location = loc

	if rules.Hours.Open, err = parseTime("open_time", rj.OpenTime); err != nil {
		return rules, err
	}
	if rules.Hours.Close, err = parseTime("close_time", rj.CloseTime); err != nil {
		return rules, err
	}

	rules.Step = time.Duration(rj.StepMinutes) * time.Minute
	rules.Buffer = time.Duration(rj.BufferMinutes) * time.Minute
	rules.HorizonDays = rj.HorizonDays
	for _, m := range rj.Durations {
		rules.Durations = append(rules.Durations, time.Duration(m)*time.Minute)
	}

	bands := make([]schedule.RateBand, 0, len(rj.RateBands))
	for i, bj := range rj.RateBands {
		field := fmt.Sprintf("rate_bands[%d]", i)
		start, err := parseTime(field+".start", bj.Start)
		if err != nil {
			return rules, err
		}
		end, err := parseTime(field+".end", bj.End)
		if err != nil {
			return rules, err
		}
		rate, err := parseRate(field, bj.HourlyRate, bj.PerMinuteRate)
		if err != nil {
			return rules, err
		}
		bands = append(bands, schedule.RateBand{Start: start, End: end, Rate: rate})
	}
	if rules.Schedule, err = schedule.NewRateSchedule(bands); err != nil {
		return rules, err
	}

	for i, sj := range rj.Surcharges {
		s, err := createSurcharge(fmt.Sprintf("surcharges[%d]", i), sj)
		if err != nil {
			return rules, err
		}
		rules.Surcharges = append(rules.Surcharges, s)
	}

	if err := rules.Validate(); err != nil {
		return rules, err
	}
	return rules, nil
}

func createSurcharge(field string, sj SurchargeJSON) (schedule.Surcharge, error) {
	s := schedule.Surcharge{
		Key:   sj.Key,
		Group: sj.Group,
		Kind:  schedule.SurchargeKind(sj.Kind),
	}
	switch s.Kind {
	case schedule.SurchargeFlat:
		if sj.Amount == nil {
			return s, &schedule.ConfigurationError{Field: field + ".amount", Reason: "required for flat surcharge"}
		}
		s.Flat = *sj.Amount
	case schedule.SurchargePerMinute:
		rate, err := parseRate(field, sj.HourlyRate, sj.PerMinuteRate)
		if err != nil {
			return s, err
		}
		s.Rate = rate
	default:
		return s, &schedule.ConfigurationError{Field: field + ".kind", Reason: fmt.Sprintf("unknown kind %q", sj.Kind)}
	}
	return s, nil
}

func parseTime(field, s string) (schedule.TimeOfDay, error) {
	if s == "" {
		return 0, &schedule.ConfigurationError{Field: field, Reason: "required"}
	}
	tod, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		return 0, &schedule.ConfigurationError{Field: field, Reason: err.Error()}
	}
	return tod, nil
}

func parseRate(field string, hourly, perMinute *decimal.Decimal) (schedule.Rate, error) {
	switch {
	case hourly != nil && perMinute != nil:
		return schedule.Rate{}, &schedule.ConfigurationError{Field: field, Reason: "give hourly_rate or per_minute_rate, not both"}
	case hourly != nil:
		return schedule.PerHourDecimal(*hourly), nil
	case perMinute != nil:
		return schedule.PerMinute(*perMinute), nil
	}
	return schedule.Rate{}, &schedule.ConfigurationError{Field: field, Reason: "hourly_rate or per_minute_rate is required"}
}

func (f *RulesFactory) loadLocation(name string) (*time.Location, error) {
	if f.LoadLocation == nil {
		return time.LoadLocation(name)
	}
	return f.LoadLocation(name)
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// ToJSON converts rules back into the JSON structure. Useful for API responses.
func ToJSON(r schedule.Rules) RulesJSON {
	rj := RulesJSON{
		Timezone:      r.Location.String(),
		OpenTime:      r.Hours.Open.String(),
		CloseTime:     r.Hours.Close.String(),
		StepMinutes:   int(r.Step / time.Minute),
		BufferMinutes: int(r.Buffer / time.Minute),
		HorizonDays:   r.HorizonDays,
	}
	for _, d := range r.Durations {
		rj.Durations = append(rj.Durations, int(d/time.Minute))
	}
	for _, b := range r.Schedule.Bands() {
		hourly := b.Rate.Hourly()
		rj.RateBands = append(rj.RateBands, RateBandJSON{Start: b.Start.String(), End: b.End.String(), HourlyRate: &hourly})
	}
	for _, s := range r.Surcharges {
		sj := SurchargeJSON{Key: s.Key, Group: s.Group, Kind: string(s.Kind)}
		switch s.Kind {
		case schedule.SurchargeFlat:
			amount := s.Flat
			sj.Amount = &amount
		case schedule.SurchargePerMinute:
			hourly := s.Rate.Hourly()
			sj.HourlyRate = &hourly
		}
		rj.Surcharges = append(rj.Surcharges, sj)
	}
	return rj
}
