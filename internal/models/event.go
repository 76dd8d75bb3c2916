package models

import "time"

// Event represents a standard calendar event.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Identifier assigned by the calendar that stores the event
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time of the event
	AllDay      bool      // True when only a start date was given
	TimeZone    string    // IANA zone the start and end are expressed in
	Location    string    // Location of the event
	Organizer   string    // Organizer's email
	Attendees   []string  // List of attendee emails
	ColorID     string    // Provider color tag, empty for the calendar default
	Recurrence  []string  // RRULE lines, empty for one-off events
	Source      string    // The source of the event (e.g., "syllabus", "meeting")
	UID         string    // The iCalendar UID, used for CalDAV and ICS export
}

// InsertOptions control how a new event is written.
type InsertOptions struct {
	// SendUpdates notifies attendees by email.
	SendUpdates bool
	// LockGuests stops attendees from editing the event or inviting others.
	LockGuests bool
}
