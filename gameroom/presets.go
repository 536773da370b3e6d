/*
presets.go - The game room's booking rules

PURPOSE:
  Ready-to-use rules for the game room: opening hours, slot grid, buffer,
  day and evening rates, and the addon menu.

THE ROOM:
  - Open 13:00 to 02:00 the next day (Europe/Moscow)
  - Hourly grid, 10 minute turnover buffer
  - 60, 90 or 120 minute sessions, bookable up to 7 days ahead
  - 400/h from 13:00 to 18:00, 500/h from 18:00 until 13:00
  - Gamepads: "duo" (two, included) or "squad" (three to four, +100/h)
  - Headsets: +150 flat

EXAMPLE:
  rules, err := gameroom.DefaultRules()
  price, _ := rules.Pricer().Price(iv, schedule.NewAddonSet(gameroom.AddonSquad))

SEE ALSO:
  - factory/rules.go: JSON schema
*/
package gameroom

import (
	"fmt"

	// Zone data is embedded so the preset timezone resolves on hosts
	// without a system zoneinfo database.
	_ "time/tzdata"

	"github.com/warp/gameroom-engine/factory"
	"github.com/warp/gameroom-engine/schedule"
)

const (
	GroupGamepads = "gamepads"

	AddonDuo      = "duo"
	AddonSquad    = "squad"
	AddonHeadsets = "headsets"
)

// DefaultRulesJSON returns the rules document for the given timezone.
func DefaultRulesJSON(timezone string) string {
	return fmt.Sprintf(`{
		"timezone": %q,
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
			{"key": %q, "group": %q, "kind": "flat", "amount": "0"},
			{"key": %q, "group": %q, "kind": "per_minute", "hourly_rate": "100"},
			{"key": %q, "kind": "flat", "amount": "150"}
		]
	}`, timezone, AddonDuo, GroupGamepads, AddonSquad, GroupGamepads, AddonHeadsets)
}

// DefaultRules parses the preset for Europe/Moscow.
func DefaultRules() (schedule.Rules, error) {
	return factory.NewRulesFactory().ParseRules(DefaultRulesJSON("Europe/Moscow"))
}

// LoadRules returns the rules from path, or the preset in timezone when path is empty.
func LoadRules(path, timezone string) (schedule.Rules, error) {
	f := factory.NewRulesFactory()
	if path != "" {
		return f.ParseRulesFile(path)
	}
	if timezone == "" {
		timezone = "Europe/Moscow"
	}
	return f.ParseRules(DefaultRulesJSON(timezone))
}
