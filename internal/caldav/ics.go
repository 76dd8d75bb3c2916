package caldav

import (
	"fmt"
	"io"
	"strings"
	"time"

	"syllacal/internal/models"

	"github.com/emersion/go-ical"
)

const productID = "-//syllacal//EN"

// NewCalendar wraps events in a VCALENDAR.
func NewCalendar(events ...*models.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, ev := range events {
		cal.Children = append(cal.Children, toICal(ev))
	}
	return cal
}

// WriteICS encodes events as one iCalendar document. Events without a UID get
// a new one.
func WriteICS(w io.Writer, events []*models.Event) error {
	for _, ev := range events {
		if ev.UID == "" {
			ev.UID = GenerateUID()
		}
	}
	if err := ical.NewEncoder(w).Encode(NewCalendar(events...)); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}

// toICal converts an internal Event model to an ical.Component (VEvent).
func toICal(event *models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if event.AllDay {
		ve.Props.SetDate(ical.PropDateTimeStart, event.StartTime)
		end := event.EndTime
		if !end.After(event.StartTime) {
			end = event.StartTime.AddDate(0, 0, 1)
		}
		ve.Props.SetDate(ical.PropDateTimeEnd, end)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
		ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)
	}

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	for _, line := range event.Recurrence {
		rule, ok := strings.CutPrefix(line, "RRULE:")
		if !ok {
			continue
		}
		// Set the raw value; SetText would escape the commas in BYDAY.
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = rule
		ve.Props.Add(p)
	}
	if event.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.Value = "mailto:" + event.Organizer
		ve.Props.Add(p)
	}
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.Value = "mailto:" + attendee
		ve.Props.Add(p)
	}
	return ve
}
