package availability

import (
	"time"
)

// transition is one step of the sweep state machine.
type transition int

const (
	advanceByIncrement transition = iota
	snapToNextDay
	snapToBandStart
	accept
)

func (t transition) String() string {
	switch t {
	case advanceByIncrement:
		return "ADVANCE_BY_INCREMENT"
	case snapToNextDay:
		return "SNAP_TO_NEXT_DAY"
	case snapToBandStart:
		return "SNAP_TO_BAND_START"
	case accept:
		return "ACCEPT"
	default:
		return "UNKNOWN"
	}
}

// sweep walks a cursor forward through a window. Every transition moves the
// cursor strictly forward, so the walk ends once cursor+duration passes the
// window end.
type sweep struct {
	loc       *time.Location
	duration  time.Duration
	increment time.Duration
	band      band
	busy      []Interval
}

func (s *sweep) run(window Window) []Slot {
	cursor := s.normalize(window.Start.In(s.loc))
	end := window.End

	var found []Slot
	days := make(map[string]bool, MaxSlots)

	limit := s.stepLimit(window)
	for steps := 0; steps < limit && !cursor.Add(s.duration).After(end); steps++ {
		t := s.next(cursor)
		if t == accept {
			slot := s.slotAt(cursor)
			if !days[slot.Date] {
				days[slot.Date] = true
				found = append(found, slot)
			}
			if len(days) >= MaxSlots {
				break
			}
			// Later candidates on an accepted day would be dropped anyway.
			t = snapToNextDay
		}
		cursor = s.apply(t, cursor)
	}

	return dedupeByDay(found, MaxSlots)
}

// normalize moves a cursor that starts outside the absolute hours to the next
// business start.
func (s *sweep) normalize(cursor time.Time) time.Time {
	switch h := cursor.Hour(); {
	case h < FloorHour:
		return s.at(cursor, 0, BusinessStartHour)
	case h >= CeilingHour:
		return s.at(cursor, 1, BusinessStartHour)
	}
	return cursor
}

// next decides what to do with a candidate starting at cursor.
func (s *sweep) next(cursor time.Time) transition {
	if wd := cursor.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return snapToNextDay
	}

	h := cursor.Hour()
	if h < FloorHour || h >= CeilingHour {
		return snapToNextDay
	}
	if h < s.band.start {
		return snapToBandStart
	}
	if h >= s.band.end {
		return snapToNextDay
	}

	slotEnd := cursor.Add(s.duration)
	if slotEnd.After(s.at(cursor, 0, CeilingHour)) {
		return snapToNextDay
	}

	for _, b := range s.busy {
		if b.overlaps(cursor, slotEnd) {
			return advanceByIncrement
		}
	}
	return accept
}

func (s *sweep) apply(t transition, cursor time.Time) time.Time {
	switch t {
	case snapToNextDay:
		return s.at(cursor, 1, BusinessStartHour)
	case snapToBandStart:
		return s.at(cursor, 0, s.band.start)
	default:
		return cursor.Add(s.increment)
	}
}

// at returns hour:00 on the day dayOffset days after cursor's day.
func (s *sweep) at(cursor time.Time, dayOffset, hour int) time.Time {
	y, m, d := cursor.Date()
	return time.Date(y, m, d+dayOffset, hour, 0, 0, 0, s.loc)
}

func (s *sweep) slotAt(cursor time.Time) Slot {
	return Slot{
		Start: cursor,
		End:   cursor.Add(s.duration),
		Date:  cursor.Format(DateLayout),
	}
}

// stepLimit caps the walk at the number of increments in the window plus a
// few snaps per day.
func (s *sweep) stepLimit(window Window) int {
	span := window.End.Sub(window.Start)
	return int(span/s.increment) + 4*int(span/(24*time.Hour)) + 16
}
