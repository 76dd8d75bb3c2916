package syllabus

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"syllacal/internal/models"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

const (
	defaultStart = "09:00"
	defaultEnd   = "10:00"
	eventSource  = "syllabus"
)

// uidNamespace seeds the stable iCalendar UIDs of imported syllabus events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("syllacal/syllabus"))

var eventColors = map[models.EventType]string{
	models.EventAssignment: "10", // green
	models.EventExam:       "5",  // yellow
	models.EventProject:    "11", // red
}

// ToCalendarEvent converts a syllabus entry into a calendar event in loc.
func ToCalendarEvent(ev models.SyllabusEvent, loc *time.Location) (*models.Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(time.DateOnly, ev.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date '%s' for '%s': %w", ev.Date, ev.Title, err)
	}

	startClock := ev.StartTime
	if startClock == "" {
		startClock = defaultStart
	}
	start, err := atClock(day, startClock)
	if err != nil {
		return nil, fmt.Errorf("invalid start time for '%s': %w", ev.Title, err)
	}

	var end time.Time
	switch {
	case ev.EndTime != "":
		end, err = atClock(day, ev.EndTime)
		if err != nil {
			return nil, fmt.Errorf("invalid end time for '%s': %w", ev.Title, err)
		}
	case ev.StartTime != "":
		end, _ = atClock(day, addHour(ev.StartTime))
	default:
		end, _ = atClock(day, defaultEnd)
	}
	// An end clock at or before the start means the event runs past midnight.
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	out := &models.Event{
		Title:       calendarTitle(ev),
		Description: calendarDescription(ev),
		StartTime:   start,
		EndTime:     end,
		TimeZone:    loc.String(),
		Location:    ev.Location,
		ColorID:     eventColors[ev.Type],
		Source:      eventSource,
		UID:         EventUID(ev),
	}
	if ev.IsRecurring {
		rule, err := recurrenceRule(ev, start, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid recurrence for '%s': %w", ev.Title, err)
		}
		out.Recurrence = []string{"RRULE:" + rule}
	}
	return out, nil
}

// EventUID derives a stable UID from the fields that identify a syllabus entry,
// so importing the same syllabus twice yields the same UIDs.
func EventUID(ev models.SyllabusEvent) string {
	key := strings.Join([]string{ev.CourseName, ev.ID, ev.Title, ev.Date}, "\x1f")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String()
}

func calendarTitle(ev models.SyllabusEvent) string {
	if course := strings.TrimSpace(ev.CourseName); course != "" {
		return course + ": " + ev.Title
	}
	return ev.Title
}

func calendarDescription(ev models.SyllabusEvent) string {
	parts := []string{"Type: " + ev.Type.Label()}
	if ev.Description != "" {
		if ev.Type == models.EventReading {
			parts = append(parts, "Reading Materials:\n"+ev.Description)
		} else {
			parts = append(parts, ev.Description)
		}
	}
	if course := strings.TrimSpace(ev.CourseName); course != "" {
		parts = append(parts, "Course: "+course)
	}
	return strings.Join(parts, "\n\n")
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

// addHour moves an HH:MM clock one hour forward, wrapping at midnight.
func addHour(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return defaultEnd
	}
	return t.Add(time.Hour).Format("15:04")
}

func recurrenceRule(ev models.SyllabusEvent, start time.Time, loc *time.Location) (string, error) {
	opt := rrule.ROption{Freq: rrule.WEEKLY}
	switch ev.RecurrenceFrequency {
	case models.FrequencyDaily:
		opt.Freq = rrule.DAILY
	case models.FrequencyBiweekly:
		opt.Interval = 2
	}

	if opt.Freq == rrule.WEEKLY {
		opt.Byweekday = ParseWeekdays(ev.RecurrenceDaysOfWeek)
	}

	if ev.RecurrenceEndDate != "" {
		last, err := time.ParseInLocation(time.DateOnly, ev.RecurrenceEndDate, loc)
		if err != nil {
			return "", fmt.Errorf("invalid recurrence end date '%s': %w", ev.RecurrenceEndDate, err)
		}
		until := last.Add(24*time.Hour - time.Second)
		if until.Before(start) {
			return "", fmt.Errorf("recurrence ends %s before the first occurrence", ev.RecurrenceEndDate)
		}
		opt.Until = until
	}
	return opt.RRuleString(), nil
}

var weekdayNames = []struct {
	prefix string
	day    rrule.Weekday
}{
	{"mon", rrule.MO},
	{"tue", rrule.TU},
	{"wed", rrule.WE},
	{"thu", rrule.TH},
	{"fri", rrule.FR},
	{"sat", rrule.SA},
	{"sun", rrule.SU},
}

// ParseWeekdays reads day lists such as "Monday, Wednesday, Friday",
// "Tuesdays and Thursdays", "MWF" or "TTh". Unknown words are ignored; the
// result is ordered Monday first without duplicates.
func ParseWeekdays(s string) []rrule.Weekday {
	seen := make(map[int]bool)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if day, ok := weekdayByName(w); ok {
			seen[day.Day()] = true
			continue
		}
		for _, day := range weekdayShorthand(w) {
			seen[day.Day()] = true
		}
	}

	var days []rrule.Weekday
	for _, d := range weekdayNames {
		if seen[d.day.Day()] {
			days = append(days, d.day)
		}
	}
	return days
}

func weekdayByName(w string) (rrule.Weekday, bool) {
	if len(w) < 3 {
		return rrule.Weekday{}, false
	}
	for _, d := range weekdayNames {
		if strings.HasPrefix(w, d.prefix) {
			return d.day, true
		}
	}
	return rrule.Weekday{}, false
}

// weekdayShorthand decodes letter runs like "mwf", "tth" or "mtwrf". It returns
// nil when w contains a letter that is not a day abbreviation.
func weekdayShorthand(w string) []rrule.Weekday {
	var days []rrule.Weekday
	for i := 0; i < len(w); {
		if i+1 < len(w) {
			switch w[i : i+2] {
			case "th":
				days, i = append(days, rrule.TH), i+2
				continue
			case "tu":
				days, i = append(days, rrule.TU), i+2
				continue
			case "sa":
				days, i = append(days, rrule.SA), i+2
				continue
			case "su":
				days, i = append(days, rrule.SU), i+2
				continue
			}
		}
		switch w[i] {
		case 'm':
			days = append(days, rrule.MO)
		case 't':
			days = append(days, rrule.TU)
		case 'w':
			days = append(days, rrule.WE)
		case 'r':
			days = append(days, rrule.TH)
		case 'f':
			days = append(days, rrule.FR)
		case 's':
			days = append(days, rrule.SA)
		case 'u':
			days = append(days, rrule.SU)
		default:
			return nil
		}
		i++
	}
	return days
}
