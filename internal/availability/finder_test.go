package availability

import (
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// monday is 2026-10-19, a Monday.
func monday(loc *time.Location, hour, minute int) time.Time {
	return time.Date(2026, 10, 19, hour, minute, 0, 0, loc)
}

func TestFindSlotsEmptyCalendarsStartMondayMorning(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	window := Window{Start: monday(loc, 9, 0), End: monday(loc, 17, 0).AddDate(0, 0, 4)}
	slots := f.FindSlots(nil, nil, 30, window, Any)

	require.Len(t, slots, 3)
	assert.True(t, slots[0].Start.Equal(monday(loc, 9, 0)))
	assert.Equal(t, 30*time.Minute, slots[0].End.Sub(slots[0].Start))
	assert.Equal(t, []string{"2026-10-19", "2026-10-20", "2026-10-21"}, dates(slots))
}

func TestFindSlotsSkipsOrganizerBusyHour(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	organizer := []Interval{{Start: monday(loc, 9, 0), End: monday(loc, 10, 0)}}
	window := Window{Start: monday(loc, 8, 0), End: monday(loc, 12, 0)}
	slots := f.FindSlots(organizer, nil, 30, window, Any)

	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(monday(loc, 10, 0)), "got %s", slots[0].Start)
}

func TestFindSlotsWeekendOnlyWindowIsEmpty(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	saturday := time.Date(2026, 10, 24, 9, 0, 0, 0, loc)
	sunday := time.Date(2026, 10, 25, 17, 0, 0, 0, loc)
	slots := f.FindSlots(nil, nil, 30, Window{Start: saturday, End: sunday}, Any)

	assert.Empty(t, slots)
}

func TestFindSlotsEveningPreference(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	window := Window{Start: monday(loc, 0, 0), End: monday(loc, 23, 59)}
	slots := f.FindSlots(nil, nil, 60, window, Evening)

	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(monday(loc, 17, 0)), "got %s", slots[0].Start)
	assert.True(t, slots[0].End.Equal(monday(loc, 18, 0)))
}

func TestFindSlotsTouchingBusyIntervalsDoNotConflict(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	organizer := []Interval{{Start: monday(loc, 8, 0), End: monday(loc, 9, 0)}}
	attendee := []Interval{{Start: monday(loc, 10, 0), End: monday(loc, 11, 0)}}
	window := Window{Start: monday(loc, 9, 0), End: monday(loc, 12, 0)}

	slots := f.FindSlots(organizer, attendee, 60, window, Any)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(monday(loc, 9, 0)))
}

func TestFindSlotsAttendeeBusyCounts(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	attendee := []Interval{{Start: monday(loc, 9, 0), End: monday(loc, 16, 0)}}
	window := Window{Start: monday(loc, 9, 0), End: monday(loc, 17, 0)}

	slots := f.FindSlots(nil, attendee, 60, window, Any)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(monday(loc, 16, 0)))
}

func TestFindSlotsUnalignedWindowStartIsNotSnapped(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	window := Window{Start: monday(loc, 10, 17), End: monday(loc, 17, 0)}
	slots := f.FindSlots(nil, nil, 45, window, Any)

	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(monday(loc, 10, 17)))
}

func TestFindSlotsNamedPreferencePastBandRollsToNextDay(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	window := Window{Start: monday(loc, 14, 0), End: monday(loc, 14, 0).AddDate(0, 0, 2)}
	slots := f.FindSlots(nil, nil, 30, window, Morning)

	require.NotEmpty(t, slots)
	assert.True(t, slots[0].Start.Equal(monday(loc, 9, 0).AddDate(0, 0, 1)), "got %s", slots[0].Start)
}

func TestFindSlotsLateStartMovesToNextDay(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	window := Window{Start: monday(loc, 22, 30), End: monday(loc, 12, 0).AddDate(0, 0, 1)}
	slots := f.FindSlots(nil, nil, 60, window, Any)

	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(monday(loc, 9, 0).AddDate(0, 0, 1)))
}

func TestFindSlotsMayEndExactlyAtCeiling(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	// Only the 19:00 candidate is free and it ends exactly at 22:00.
	busy := []Interval{{Start: monday(loc, 17, 0), End: monday(loc, 19, 0)}}
	window := Window{Start: monday(loc, 17, 0), End: monday(loc, 23, 0)}

	slots := f.FindSlots(busy, nil, 180, window, Evening)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].End.Equal(monday(loc, 22, 0)))
}

func TestFindSlotsNeverPastCeiling(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	busy := []Interval{{Start: monday(loc, 17, 0), End: monday(loc, 19, 30)}}
	window := Window{Start: monday(loc, 17, 0), End: monday(loc, 23, 0)}

	slots := f.FindSlots(busy, nil, 180, window, Evening)
	assert.Empty(t, slots)
}

func TestFindSlotsOversizedDurationTerminates(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	window := Window{Start: monday(loc, 9, 0), End: monday(loc, 9, 0).AddDate(0, 0, 14)}
	slots := f.FindSlots(nil, nil, 24*60, window, Any)

	assert.Empty(t, slots)
}

func TestFindSlotsPreconditionViolationsAreEmpty(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)
	window := Window{Start: monday(loc, 9, 0), End: monday(loc, 17, 0)}

	assert.Empty(t, f.FindSlots(nil, nil, 0, window, Any))
	assert.Empty(t, f.FindSlots(nil, nil, -30, window, Any))
	assert.Empty(t, f.FindSlots(nil, nil, 30, Window{Start: window.End, End: window.Start}, Any))
	assert.Empty(t, f.FindSlots(nil, nil, 30, Window{Start: window.Start, End: window.Start}, Any))
}

func TestFindSlotsAcrossDaylightSavingChange(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	// US daylight saving ends on Sunday 2026-11-01.
	start := time.Date(2026, 10, 30, 9, 0, 0, 0, loc)
	end := time.Date(2026, 11, 4, 17, 0, 0, 0, loc)
	slots := f.FindSlots(nil, nil, 60, Window{Start: start, End: end}, Any)

	require.Len(t, slots, 3)
	assert.Equal(t, []string{"2026-10-30", "2026-11-02", "2026-11-03"}, dates(slots))
	for _, s := range slots {
		assert.Equal(t, 9, s.Start.In(loc).Hour())
	}
}

func TestFindSlotsUsesConfiguredTimeZone(t *testing.T) {
	f := NewFinder(time.UTC)

	// 13:00 UTC on Monday is 09:00 in New York but must be judged in UTC here.
	start := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	slots := f.FindSlots(nil, nil, 30, Window{Start: start, End: end}, Any)

	require.Len(t, slots, 1)
	assert.True(t, slots[0].Start.Equal(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-10-19", slots[0].Date)
}

func TestFindSlotsIdempotent(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)

	busy := randomBusy(rand.New(rand.NewSource(7)), loc, 20)
	window := Window{Start: monday(loc, 7, 0), End: monday(loc, 7, 0).AddDate(0, 0, 14)}

	first := f.FindSlots(busy, nil, 45, window, Afternoon)
	second := f.FindSlots(busy, nil, 45, window, Afternoon)
	assert.Equal(t, first, second)
}

func TestFindSlotsInvariants(t *testing.T) {
	loc := newYork(t)
	f := NewFinder(loc)
	rng := rand.New(rand.NewSource(1))

	prefs := []Preference{Any, Morning, Afternoon, Evening}
	durations := []int{15, 30, 45, 60, 90, 120}

	for i := 0; i < 300; i++ {
		organizer := randomBusy(rng, loc, rng.Intn(25))
		attendee := randomBusy(rng, loc, rng.Intn(25))
		duration := durations[rng.Intn(len(durations))]
		pref := prefs[rng.Intn(len(prefs))]
		start := monday(loc, rng.Intn(24), rng.Intn(60)).Add(time.Duration(rng.Intn(7*24)) * time.Hour)
		window := Window{Start: start, End: start.Add(time.Duration(1+rng.Intn(14*24)) * time.Hour)}

		slots := f.FindSlots(organizer, attendee, duration, window, pref)

		require.LessOrEqual(t, len(slots), MaxSlots)
		seen := map[string]bool{}
		b := bands[pref]
		for j, s := range slots {
			local := s.Start.In(loc)
			assert.Equal(t, time.Duration(duration)*time.Minute, s.End.Sub(s.Start))
			assert.False(t, seen[s.Date], "duplicate day %s", s.Date)
			seen[s.Date] = true
			assert.Equal(t, local.Format(DateLayout), s.Date)
			assert.NotEqual(t, time.Saturday, local.Weekday())
			assert.NotEqual(t, time.Sunday, local.Weekday())
			assert.GreaterOrEqual(t, local.Hour(), FloorHour)
			y, m, d := local.Date()
			assert.False(t, s.End.After(time.Date(y, m, d, CeilingHour, 0, 0, 0, loc)))
			assert.GreaterOrEqual(t, local.Hour(), b.start)
			assert.Less(t, local.Hour(), b.end)
			assert.False(t, s.Start.Before(window.Start))
			assert.False(t, s.End.After(window.End))
			if j > 0 {
				assert.True(t, slots[j-1].Start.Before(s.Start))
			}
			for _, busy := range append(append([]Interval{}, organizer...), attendee...) {
				assert.False(t, busy.overlaps(s.Start, s.End), "slot %s-%s overlaps busy %s-%s", s.Start, s.End, busy.Start, busy.End)
			}
		}
	}
}

func TestParsePreference(t *testing.T) {
	p, err := ParsePreference("")
	require.NoError(t, err)
	assert.Equal(t, Any, p)

	p, err = ParsePreference(" Morning ")
	require.NoError(t, err)
	assert.Equal(t, Morning, p)

	_, err = ParsePreference("midnight")
	assert.Error(t, err)
}

func TestDedupeByDayKeepsEarliest(t *testing.T) {
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	in := []Slot{
		{Start: base, Date: "2026-10-19"},
		{Start: base.Add(time.Hour), Date: "2026-10-19"},
		{Start: base.AddDate(0, 0, 1), Date: "2026-10-20"},
		{Start: base.AddDate(0, 0, 2), Date: "2026-10-21"},
		{Start: base.AddDate(0, 0, 3), Date: "2026-10-22"},
	}

	out := dedupeByDay(in, MaxSlots)
	require.Len(t, out, 3)
	assert.True(t, out[0].Start.Equal(base))
	assert.Equal(t, []string{"2026-10-19", "2026-10-20", "2026-10-21"}, dates(out))
}

func dates(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Date
	}
	return out
}

func randomBusy(rng *rand.Rand, loc *time.Location, n int) []Interval {
	busy := make([]Interval, 0, n)
	for i := 0; i < n; i++ {
		start := monday(loc, 0, 0).Add(time.Duration(rng.Intn(21*24*4)) * 15 * time.Minute)
		busy = append(busy, Interval{Start: start, End: start.Add(time.Duration(1+rng.Intn(16)) * 15 * time.Minute)})
	}
	return busy
}
