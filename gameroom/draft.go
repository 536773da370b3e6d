package gameroom

import (
	"time"

	"github.com/warp/gameroom-engine/schedule"
)

// Draft is one customer's booking in progress. The conversational layer owns
// it and passes it to the service at each step; the service keeps nothing
// between calls.
type Draft struct {
	Date     time.Time // business day date, local
	Duration time.Duration
	Start    time.Time
	Addons   schedule.AddonSet
	Customer schedule.Customer
}

// NewDraft starts a draft with the included gamepad tier selected.
func NewDraft(handle string) *Draft {
	return &Draft{
		Addons:   schedule.NewAddonSet(AddonDuo),
		Customer: schedule.Customer{Handle: handle},
	}
}

// Choose selects key, replacing any other key of the same exclusive group.
func (d *Draft) Choose(rules schedule.Rules, key string) {
	s, ok := rules.Surcharge(key)
	if ok && s.Group != "" {
		for _, other := range rules.Surcharges {
			if other.Group == s.Group {
				d.Addons = d.Addons.Without(other.Key)
			}
		}
	}
	d.Addons = d.Addons.With(key)
}

// Toggle flips an independent addon.
func (d *Draft) Toggle(key string) {
	if d.Addons.Has(key) {
		d.Addons = d.Addons.Without(key)
		return
	}
	d.Addons = d.Addons.With(key)
}

// Interval is the booked span, without buffer.
func (d *Draft) Interval() (schedule.Interval, error) {
	if d.Start.IsZero() || d.Duration <= 0 {
		return schedule.Interval{}, ErrIncompleteDraft
	}
	return schedule.IntervalOf(d.Start, d.Duration)
}
