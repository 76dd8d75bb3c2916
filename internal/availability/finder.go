// Package availability finds meeting slots that fit two participants' calendars.
package availability

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// FloorHour and CeilingHour bound every proposed slot: no slot starts before
	// 06:00 and no slot ends after 22:00.
	FloorHour   = 6
	CeilingHour = 22

	// BusinessStartHour is where the cursor lands whenever it snaps to a new day.
	BusinessStartHour = 9
	BusinessEndHour   = 17

	// MaxSlots is the number of proposals returned, one per calendar day.
	MaxSlots = 3

	// DateLayout is the layout of Slot.Date.
	DateLayout = "2006-01-02"
)

// Preference narrows the hours of the day a meeting may start in.
type Preference string

const (
	Any       Preference = "any"
	Morning   Preference = "morning"
	Afternoon Preference = "afternoon"
	Evening   Preference = "evening"
)

// band is a half-open range of start hours, [start, end).
type band struct {
	start int
	end   int
}

var bands = map[Preference]band{
	Any:       {BusinessStartHour, BusinessEndHour},
	Morning:   {9, 12},
	Afternoon: {13, 17},
	Evening:   {17, 20},
}

// ParsePreference maps a user supplied string to a Preference. The empty string
// means Any.
func ParsePreference(s string) (Preference, error) {
	p := Preference(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return Any, nil
	}
	if _, ok := bands[p]; !ok {
		return "", fmt.Errorf("unknown time window %q (want morning, afternoon, evening or any)", s)
	}
	return p, nil
}

// Interval is a blocked period on a calendar, treated as [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// overlaps reports whether [start, end) intersects the interval. Touching
// boundaries do not count.
func (i Interval) overlaps(start, end time.Time) bool {
	return start.Before(i.End) && end.After(i.Start)
}

// Window is the span in which slots may be proposed.
type Window struct {
	Start time.Time
	End   time.Time
}

// Slot is a proposed meeting time.
type Slot struct {
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
	Date  string    `json:"date"`
}

// Finder searches for mutually free slots. It holds no per-call state and is
// safe for concurrent use.
type Finder struct {
	loc *time.Location
}

// NewFinder returns a Finder that evaluates hours, weekdays and day keys in loc.
// A nil loc means UTC.
func NewFinder(loc *time.Location) *Finder {
	if loc == nil {
		loc = time.UTC
	}
	return &Finder{loc: loc}
}

// Location returns the reference time zone of the finder.
func (f *Finder) Location() *time.Location {
	return f.loc
}

// FindSlots returns up to MaxSlots non-conflicting slots of durationMinutes
// inside window, at most one per calendar day, in ascending order.
//
// A non-positive duration or an empty window yields no slots. So does a window
// with no free time; that is a normal outcome, not an error.
func (f *Finder) FindSlots(organizerBusy, attendeeBusy []Interval, durationMinutes int, window Window, pref Preference) []Slot {
	if durationMinutes <= 0 || !window.Start.Before(window.End) {
		return nil
	}
	b, ok := bands[pref]
	if !ok {
		b = bands[Any]
	}

	s := &sweep{
		loc:       f.loc,
		duration:  time.Duration(durationMinutes) * time.Minute,
		increment: scanIncrement(durationMinutes),
		band:      b,
		busy:      mergeBusy(organizerBusy, attendeeBusy),
	}
	return s.run(window)
}

// scanIncrement is the cursor step between candidates. Short meetings are
// scanned on the half hour.
func scanIncrement(durationMinutes int) time.Duration {
	if durationMinutes <= 30 {
		return 30 * time.Minute
	}
	return 60 * time.Minute
}

func mergeBusy(lists ...[]Interval) []Interval {
	var merged []Interval
	for _, l := range lists {
		merged = append(merged, l...)
	}
	slices.SortStableFunc(merged, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})
	return merged
}

// dedupeByDay keeps the first slot of each day, in order, up to limit entries.
func dedupeByDay(slots []Slot, limit int) []Slot {
	seen := make(map[string]bool, len(slots))
	out := make([]Slot, 0, min(len(slots), limit))
	for _, slot := range slots {
		if seen[slot.Date] {
			continue
		}
		seen[slot.Date] = true
		out = append(out, slot)
		if len(out) == limit {
			break
		}
	}
	return out
}
