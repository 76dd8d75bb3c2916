// Package meeting books one-on-one meetings in the organizer's free time.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"syllacal/internal/availability"
	"syllacal/internal/extractor"
	"syllacal/internal/models"
)

const (
	// MinDuration is the shortest meeting the scheduler books, in minutes.
	MinDuration = 15
	// DefaultWindowDays is how far ahead slots are searched by default.
	DefaultWindowDays = 14

	primaryCalendar = "primary"
)

// ErrNoSlots is returned when neither calendar has room in the window.
var ErrNoSlots = errors.New("no availability in range")

// Calendar is the calendar backend used to read free/busy and write events.
type Calendar interface {
	PrimaryCalendarID(ctx context.Context) (string, error)
	FreeBusy(ctx context.Context, identities []string, from, to time.Time) (map[string][]availability.Interval, error)
	InsertEvent(ctx context.Context, calendarID string, event *models.Event, opts models.InsertOptions) (string, error)
}

// Directory resolves display names. Lookups never fail; an unknown name is "".
type Directory interface {
	CurrentUserName(ctx context.Context) string
	PersonNameByEmail(ctx context.Context, email string) string
}

// InvitationWriter drafts invitation messages.
type InvitationWriter interface {
	GenerateInvitation(ctx context.Context, req extractor.InvitationRequest) (string, error)
}

// Scheduler finds and books meetings between the organizer and one attendee.
type Scheduler struct {
	logger *slog.Logger
	cal    Calendar
	dir    Directory
	writer InvitationWriter
	finder *availability.Finder
	now    func() time.Time
}

// NewScheduler creates a Scheduler that reasons about hours and days in loc.
func NewScheduler(logger *slog.Logger, cal Calendar, dir Directory, writer InvitationWriter, loc *time.Location) *Scheduler {
	return &Scheduler{
		logger: logger,
		cal:    cal,
		dir:    dir,
		writer: writer,
		finder: availability.NewFinder(loc),
		now:    time.Now,
	}
}

// Location returns the scheduler's reference time zone.
func (s *Scheduler) Location() *time.Location {
	return s.finder.Location()
}

// SlotQuery describes a slot search.
type SlotQuery struct {
	Attendee   string
	Duration   int // minutes
	Preference availability.Preference
	// Window is searched for slots. The zero Window means DefaultWindow.
	Window availability.Window
}

// DefaultWindow runs from 09:00 tomorrow to 17:00 DefaultWindowDays later.
func (s *Scheduler) DefaultWindow() availability.Window {
	now := s.now().In(s.Location())
	start := time.Date(now.Year(), now.Month(), now.Day()+1, availability.BusinessStartHour, 0, 0, 0, now.Location())
	end := time.Date(start.Year(), start.Month(), start.Day()+DefaultWindowDays, availability.BusinessEndHour, 0, 0, 0, now.Location())
	return availability.Window{Start: start, End: end}
}

// WindowFor returns the search window for a parsed request. A preferred date in
// the future moves the start of the default window to that date and time.
func (s *Scheduler) WindowFor(details *models.MeetingDetails) availability.Window {
	w := s.DefaultWindow()
	if details == nil || details.PreferredTime == nil || details.PreferredTime.Date == "" {
		return w
	}
	pt := details.PreferredTime
	day, err := time.ParseInLocation(time.DateOnly, pt.Date, s.Location())
	if err != nil {
		return w
	}
	start := day
	if clock, err := time.Parse("15:04", pt.Time); err == nil {
		start = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
	}
	if !start.After(s.now()) {
		return w
	}
	end := time.Date(day.Year(), day.Month(), day.Day()+DefaultWindowDays, availability.BusinessEndHour, 0, 0, 0, day.Location())
	return availability.Window{Start: start, End: end}
}

// FindSlots proposes up to three slots, one per weekday, that are free on both
// the organizer's and the attendee's calendar.
func (s *Scheduler) FindSlots(ctx context.Context, q SlotQuery) ([]availability.Slot, error) {
	attendee := strings.TrimSpace(q.Attendee)
	if attendee == "" {
		return nil, errors.New("attendee email is required")
	}
	duration := max(q.Duration, MinDuration)
	window := q.Window
	if window.Start.IsZero() || window.End.IsZero() {
		window = s.DefaultWindow()
	}
	pref := q.Preference
	if pref == "" {
		pref = availability.Any
	}

	organizer, err := s.cal.PrimaryCalendarID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organizer: %w", err)
	}

	busy, err := s.cal.FreeBusy(ctx, []string{organizer, attendee}, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	slots := s.finder.FindSlots(busy[organizer], busy[attendee], duration, window, pref)
	s.logger.Info("Searched for meeting slots",
		"attendee", attendee, "duration", duration, "preference", pref,
		"from", window.Start, "to", window.End, "found", len(slots))
	if len(slots) == 0 {
		return nil, ErrNoSlots
	}
	return slots, nil
}

// Book creates the meeting on the organizer's primary calendar and invites the
// attendee. message is used as the description; when empty the request's own
// description is used.
func (s *Scheduler) Book(ctx context.Context, attendee string, slot availability.Slot, details models.MeetingDetails, message string) (string, error) {
	if !slot.End.After(slot.Start) {
		return "", fmt.Errorf("invalid slot %s - %s", slot.Start, slot.End)
	}
	description := message
	if description == "" {
		description = details.Description
	}

	event := &models.Event{
		Title:       details.Title,
		Description: description,
		StartTime:   slot.Start.In(s.Location()),
		EndTime:     slot.End.In(s.Location()),
		TimeZone:    s.Location().String(),
		Attendees:   []string{attendee},
		Source:      "meeting",
	}
	id, err := s.cal.InsertEvent(ctx, primaryCalendar, event, models.InsertOptions{SendUpdates: true, LockGuests: true})
	if err != nil {
		return "", fmt.Errorf("failed to book meeting: %w", err)
	}
	return id, nil
}

// DraftInvitation writes the invitation text for slot, addressing the attendee
// by name when the directory knows it.
func (s *Scheduler) DraftInvitation(ctx context.Context, details models.MeetingDetails, slot availability.Slot, attendee string, tone models.Tone) (string, error) {
	req := extractor.InvitationRequest{
		Details:       details,
		Slot:          slot,
		AttendeeEmail: attendee,
		AttendeeName:  s.dir.PersonNameByEmail(ctx, attendee),
		SenderName:    s.dir.CurrentUserName(ctx),
		Tone:          tone,
		Location:      s.Location(),
	}
	msg, err := s.writer.GenerateInvitation(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to draft invitation: %w", err)
	}
	return msg, nil
}
