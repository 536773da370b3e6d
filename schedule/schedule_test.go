package schedule

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var msk = time.FixedZone("MSK", 3*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, msk)
}

func span(t *testing.T, start, end time.Time) Interval {
	iv, err := NewInterval(start, end)
	require.NoError(t, err)
	return iv
}

func testRules() Rules {
	return Rules{
		Hours:       Hours{Open: NewTimeOfDay(13, 0), Close: NewTimeOfDay(2, 0)},
		Step:        time.Hour,
		Buffer:      10 * time.Minute,
		Durations:   []time.Duration{60 * time.Minute, 90 * time.Minute, 120 * time.Minute},
		HorizonDays: 7,
		Location:    msk,
		Schedule: MustRateSchedule(
			RateBand{Start: NewTimeOfDay(13, 0), End: NewTimeOfDay(18, 0), Rate: PerHour(400)},
			RateBand{Start: NewTimeOfDay(18, 0), End: NewTimeOfDay(13, 0), Rate: PerHour(500)},
		),
		Surcharges: []Surcharge{
			{Key: "duo", Group: "gamepads", Kind: SurchargeFlat, Flat: decimal.Zero},
			{Key: "squad", Group: "gamepads", Kind: SurchargePerMinute, Rate: PerHour(100)},
			{Key: "headsets", Kind: SurchargeFlat, Flat: decimal.NewFromInt(150)},
		},
	}
}

// sliceQuery is a ReservationQuery over a fixed list.
type sliceQuery []Reservation

func (q sliceQuery) QueryOverlapping(_ context.Context, iv Interval, statuses []Status) ([]Reservation, error) {
	filter := ListFilter{Statuses: statuses}
	var out []Reservation
	for _, r := range q {
		if r.Interval.Overlaps(iv) && filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func booked(start, end time.Time, status Status) Reservation {
	return Reservation{ID: ReservationID(start.Format("1504")), Interval: Interval{Start: start, End: end}, Status: status}
}

// =============================================================================
// INTERVAL & STATUS TESTS
// =============================================================================

func TestInterval_RejectsEmptyAndReversed(t *testing.T) {
	_, err := NewInterval(at(10, 14, 0), at(10, 14, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(at(10, 15, 0), at(10, 14, 0))
	var ivErr *InvalidIntervalError
	assert.ErrorAs(t, err, &ivErr)

	_, err = IntervalOf(at(10, 14, 0), 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestInterval_HalfOpenOverlap(t *testing.T) {
	a := span(t, at(10, 14, 0), at(10, 15, 0))
	b := span(t, at(10, 15, 0), at(10, 16, 0))
	c := span(t, at(10, 14, 59), at(10, 16, 0))

	assert.False(t, a.Overlaps(b), "touching intervals do not overlap")
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(a))
}

func TestStatus_Lifecycle(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusBlocked, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusBlocked, StatusConfirmed, false},
		{StatusPending, StatusBlocked, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}

	assert.False(t, StatusCancelled.Occupies())
	assert.True(t, StatusBlocked.Occupies())
}

func TestAddonSet_OrderIndependent(t *testing.T) {
	// GIVEN: The same addons selected in different orders
	a := NewAddonSet("squad", "headsets")
	b := NewAddonSet("headsets", "squad", "squad")

	// THEN: Canonical encodings are equal and decode back to the same set
	assert.Equal(t, "headsets,squad", a.Encode())
	assert.True(t, a.Equal(b))
	assert.True(t, ParseAddonSet("squad,headsets").Equal(a))
	assert.Equal(t, 0, ParseAddonSet("").Len())

	assert.True(t, a.Has("squad"))
	assert.False(t, a.Without("squad").Has("squad"))
	assert.Equal(t, "duo,headsets,squad", a.With("duo").Encode())
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestBusinessDay_ClosesNextDate(t *testing.T) {
	day := testRules().Day(at(10, 9, 0))

	assert.Equal(t, at(10, 13, 0), day.Opening())
	assert.Equal(t, at(11, 2, 0), day.Closing())
	assert.Equal(t, at(11, 1, 0), day.At(NewTimeOfDay(1, 0)), "times before opening belong to the next date")
	assert.Equal(t, at(10, 20, 0), day.At(NewTimeOfDay(20, 0)))

	assert.False(t, day.IsPast(at(11, 1, 59)))
	assert.True(t, day.IsPast(at(11, 2, 0)))
}

func TestTimeOfDay_ParseAndUntil(t *testing.T) {
	tod, err := ParseTimeOfDay("18:30")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(18, 30), tod)
	assert.Equal(t, "18:30", tod.String())

	midnight, err := ParseTimeOfDay("24:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(0), midnight)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)

	assert.Equal(t, 13*time.Hour, NewTimeOfDay(13, 0).Until(NewTimeOfDay(2, 0)))
	assert.Equal(t, 24*time.Hour, NewTimeOfDay(5, 0).Until(NewTimeOfDay(5, 0)))
}

// =============================================================================
// SLOT GENERATION TESTS
// =============================================================================

func TestGenerateSlots_BufferFitsBeforeClose(t *testing.T) {
	rules := testRules()
	day := rules.Day(at(10, 0, 0))

	tests := []struct {
		duration  time.Duration
		wantCount int
		wantLast  time.Time
	}{
		{60 * time.Minute, 12, at(11, 0, 0)},
		{90 * time.Minute, 12, at(11, 0, 0)},
		{120 * time.Minute, 11, at(10, 23, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.duration.String(), func(t *testing.T) {
			slots := GenerateSlots(day, tt.duration, rules.Buffer, rules.Step)

			require.Len(t, slots, tt.wantCount)
			assert.Equal(t, day.Opening(), slots[0].Start)
			assert.Equal(t, tt.wantLast, slots[len(slots)-1].Start)
			for i, s := range slots {
				assert.Equal(t, tt.duration, s.Duration())
				assert.False(t, s.End.Add(rules.Buffer).After(day.Closing()))
				if i > 0 {
					assert.Equal(t, rules.Step, s.Start.Sub(slots[i-1].Start))
				}
			}
		})
	}
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	rules := testRules()
	day := rules.Day(at(12, 0, 0))

	first := GenerateSlots(day, 90*time.Minute, rules.Buffer, rules.Step)
	second := GenerateSlots(day, 90*time.Minute, rules.Buffer, rules.Step)
	assert.Equal(t, first, second)
}

func TestGenerateSlots_EmptyWhenNothingFits(t *testing.T) {
	// GIVEN: A one-hour window and a 10 minute buffer
	day := NewBusinessDay(at(10, 0, 0), msk, Hours{Open: NewTimeOfDay(13, 0), Close: NewTimeOfDay(14, 0)})

	// THEN: A 60 minute session plus buffer does not fit; empty is not an error
	assert.Empty(t, GenerateSlots(day, time.Hour, 10*time.Minute, time.Hour))
	assert.Len(t, GenerateSlots(day, time.Hour, 0, time.Hour), 1)
	assert.Nil(t, GenerateSlots(day, 0, 0, time.Hour))
}

func TestFilterPast_AndOnGrid(t *testing.T) {
	rules := testRules()
	day := rules.Day(at(10, 0, 0))
	slots := rules.Slots(day, time.Hour)

	left := FilterPast(slots, at(10, 15, 30))
	require.NotEmpty(t, left)
	assert.Equal(t, at(10, 16, 0), left[0].Start)

	assert.True(t, OnGrid(day, at(10, 16, 0), rules.Step))
	assert.False(t, OnGrid(day, at(10, 16, 30), rules.Step))
	assert.False(t, OnGrid(day, at(10, 12, 0), rules.Step))
}

// =============================================================================
// PRICING TESTS
// =============================================================================

func TestPricer_Examples(t *testing.T) {
	pricer := testRules().Pricer()

	tests := []struct {
		name   string
		start  time.Time
		end    time.Time
		addons AddonSet
		want   int64
	}{
		{"one day hour", at(10, 13, 0), at(10, 14, 0), NewAddonSet("duo"), 400},
		{"across 18:00 with squad", at(10, 17, 0), at(10, 19, 0), NewAddonSet("squad"), 1100},
		{"squad and headsets", at(10, 17, 0), at(10, 19, 0), NewAddonSet("headsets", "squad"), 1250},
		{"half and half", at(10, 17, 30), at(10, 18, 30), AddonSet{}, 450},
		{"past midnight", at(10, 23, 0), at(11, 1, 0), AddonSet{}, 1000},
		{"evening band before opening", at(10, 12, 0), at(10, 14, 0), AddonSet{}, 900},
		{"half hour", at(10, 13, 0), at(10, 13, 30), AddonSet{}, 200},
		{"ninety minutes", at(10, 13, 0), at(10, 14, 30), AddonSet{}, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := pricer.Price(span(t, tt.start, tt.end), tt.addons)
			require.NoError(t, err)
			assert.Equal(t, tt.want, price)
		})
	}
}

func TestPricer_RoundsHalfToEven(t *testing.T) {
	// GIVEN: A flat 333/h schedule
	pricer := NewPricer(MustRateSchedule(RateBand{Start: 0, End: 0, Rate: PerHour(333)}), nil, msk)

	// 90 minutes = 499.5, 30 minutes = 166.5
	price, err := pricer.Price(span(t, at(10, 13, 0), at(10, 14, 30)), AddonSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(500), price)

	price, err = pricer.Price(span(t, at(10, 13, 0), at(10, 13, 30)), AddonSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(166), price)

	exact, err := pricer.Exact(span(t, at(10, 13, 0), at(10, 13, 30)), AddonSet{})
	require.NoError(t, err)
	assert.True(t, exact.Equal(decimal.RequireFromString("166.5")))
}

func TestPricer_LongerNeverCheaper(t *testing.T) {
	rules := testRules()
	pricer := rules.Pricer()
	day := rules.Day(at(10, 0, 0))

	for _, start := range rules.Slots(day, time.Hour) {
		prev := int64(-1)
		for _, d := range rules.Durations {
			price, err := pricer.Price(span(t, start.Start, start.Start.Add(d)), NewAddonSet("squad"))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, price, prev, "start %s duration %s", start.Start, d)
			prev = price
		}
	}
}

func TestPricer_Errors(t *testing.T) {
	pricer := testRules().Pricer()
	iv := span(t, at(10, 13, 0), at(10, 14, 0))

	_, err := pricer.Price(Interval{Start: at(10, 14, 0), End: at(10, 13, 0)}, AddonSet{})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = pricer.Price(iv, NewAddonSet("karaoke"))
	var addonErr *AddonError
	require.ErrorAs(t, err, &addonErr)
	assert.Equal(t, "karaoke", addonErr.Key)

	_, err = pricer.Price(iv, NewAddonSet("duo", "squad"))
	assert.ErrorIs(t, err, ErrInvalidAddon)
}

func TestRateSchedule_Validation(t *testing.T) {
	h := NewTimeOfDay

	tests := []struct {
		name  string
		bands []RateBand
	}{
		{"empty", nil},
		{"gap", []RateBand{
			{Start: h(13, 0), End: h(18, 0), Rate: PerHour(400)},
			{Start: h(19, 0), End: h(13, 0), Rate: PerHour(500)},
		}},
		{"overlap", []RateBand{
			{Start: h(13, 0), End: h(19, 0), Rate: PerHour(400)},
			{Start: h(18, 0), End: h(13, 0), Rate: PerHour(500)},
		}},
		{"negative", []RateBand{
			{Start: h(0, 0), End: h(0, 0), Rate: PerHour(-1)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRateSchedule(tt.bands)
			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}

	rs, err := NewRateSchedule([]RateBand{
		{Start: h(18, 0), End: h(13, 0), Rate: PerHour(500)},
		{Start: h(13, 0), End: h(18, 0), Rate: PerHour(400)},
	})
	require.NoError(t, err)
	assert.True(t, rs.RateAt(at(10, 23, 30)).Hourly().Equal(decimal.NewFromInt(500)))
	assert.True(t, rs.RateAt(at(10, 13, 0)).Hourly().Equal(decimal.NewFromInt(400)))
}

func TestRules_Validate(t *testing.T) {
	assert.NoError(t, testRules().Validate())

	r := testRules()
	r.Durations = append(r.Durations, 13*time.Hour)
	assert.ErrorIs(t, r.Validate(), ErrConfiguration, "duration plus buffer must fit in the window")

	r = testRules()
	r.Step = 0
	assert.ErrorIs(t, r.Validate(), ErrConfiguration)

	r = testRules()
	r.Surcharges = append(r.Surcharges, Surcharge{Key: "duo", Kind: SurchargeFlat})
	assert.ErrorIs(t, r.Validate(), ErrConfiguration)

	r = testRules()
	assert.True(t, r.AllowsDuration(90*time.Minute))
	assert.False(t, r.AllowsDuration(30*time.Minute))
}

// =============================================================================
// AVAILABILITY TESTS
// =============================================================================

func TestConflicts_BufferAfterExisting(t *testing.T) {
	// GIVEN: A confirmed booking 14:00-15:00 and a 10 minute buffer
	q := sliceQuery{booked(at(10, 14, 0), at(10, 15, 0), StatusConfirmed)}
	ctx := context.Background()
	buffer := 10 * time.Minute

	// WHEN/THEN: Starting 5 minutes after conflicts, 10 minutes after is free
	conflict, err := HasConflict(ctx, span(t, at(10, 15, 5), at(10, 16, 5)), buffer, q)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = HasConflict(ctx, span(t, at(10, 15, 10), at(10, 16, 10)), buffer, q)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestConflicts_BufferBeforeExisting(t *testing.T) {
	q := sliceQuery{booked(at(10, 14, 0), at(10, 15, 0), StatusPending)}
	ctx := context.Background()
	buffer := 10 * time.Minute

	conflict, err := HasConflict(ctx, span(t, at(10, 12, 55), at(10, 13, 55)), buffer, q)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = HasConflict(ctx, span(t, at(10, 12, 50), at(10, 13, 50)), buffer, q)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestConflicts_CancelledIgnored(t *testing.T) {
	q := sliceQuery{booked(at(10, 14, 0), at(10, 15, 0), StatusCancelled)}

	conflict, err := HasConflict(context.Background(), span(t, at(10, 14, 0), at(10, 15, 0)), 10*time.Minute, q)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestConflicts_InvalidCandidate(t *testing.T) {
	_, err := Conflicts(context.Background(), Interval{Start: at(10, 15, 0), End: at(10, 15, 0)}, 0, sliceQuery{})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCollides_Symmetric(t *testing.T) {
	buffer := 10 * time.Minute
	base := at(10, 14, 0)
	var ivs []Interval
	for m := 0; m <= 180; m += 5 {
		start := base.Add(time.Duration(m) * time.Minute)
		ivs = append(ivs, Interval{Start: start, End: start.Add(time.Hour)})
	}

	for _, a := range ivs {
		for _, b := range ivs {
			assert.Equal(t, Collides(a, b, buffer), Collides(b, a, buffer), "%s vs %s", a, b)
		}
	}
}

func TestFilterAvailable(t *testing.T) {
	// GIVEN: 15:00-16:00 is taken and 19:00-20:00 was cancelled
	rules := testRules()
	day := rules.Day(at(10, 0, 0))
	q := sliceQuery{
		booked(at(10, 15, 0), at(10, 16, 0), StatusConfirmed),
		booked(at(10, 19, 0), at(10, 20, 0), StatusCancelled),
	}

	// WHEN: Offering 60 minute slots
	free, err := FilterAvailable(context.Background(), rules.Slots(day, time.Hour), rules.Buffer, q)
	require.NoError(t, err)

	// THEN: 14:00, 15:00 and 16:00 are gone; 19:00 is offered
	var starts []string
	for _, s := range free {
		starts = append(starts, s.Start.Format("15:04"))
	}
	assert.NotContains(t, starts, "14:00")
	assert.NotContains(t, starts, "15:00")
	assert.NotContains(t, starts, "16:00")
	assert.Contains(t, starts, "13:00")
	assert.Contains(t, starts, "17:00")
	assert.Contains(t, starts, "19:00")
	assert.True(t, sort.SliceIsSorted(free, func(i, j int) bool { return free[i].Start.Before(free[j].Start) }))
}
