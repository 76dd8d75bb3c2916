package meeting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
	_ "time/tzdata"

	"syllacal/internal/availability"
	"syllacal/internal/extractor"
	"syllacal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	organizer = "me@example.com"
	attendee  = "smith@example.edu"
)

type fakeCalendar struct {
	busy     map[string][]availability.Interval
	fbErr    error
	insertID string

	queried    []string
	from, to   time.Time
	calendarID string
	inserted   *models.Event
	opts       models.InsertOptions
}

func (f *fakeCalendar) PrimaryCalendarID(context.Context) (string, error) {
	return organizer, nil
}

func (f *fakeCalendar) FreeBusy(_ context.Context, ids []string, from, to time.Time) (map[string][]availability.Interval, error) {
	f.queried, f.from, f.to = ids, from, to
	return f.busy, f.fbErr
}

func (f *fakeCalendar) InsertEvent(_ context.Context, calendarID string, event *models.Event, opts models.InsertOptions) (string, error) {
	f.calendarID, f.inserted, f.opts = calendarID, event, opts
	return f.insertID, nil
}

type fakeDirectory struct{}

func (fakeDirectory) CurrentUserName(context.Context) string { return "Alex Kim" }

func (fakeDirectory) PersonNameByEmail(_ context.Context, email string) string {
	if email == attendee {
		return "John Smith"
	}
	return ""
}

type fakeWriter struct {
	got extractor.InvitationRequest
	err error
}

func (f *fakeWriter) GenerateInvitation(_ context.Context, req extractor.InvitationRequest) (string, error) {
	f.got = req
	return "Dear Professor Smith,", f.err
}

func newTestScheduler(t *testing.T, cal Calendar, writer InvitationWriter) (*Scheduler, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	s := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), cal, fakeDirectory{}, writer, loc)
	// Sunday morning.
	s.now = func() time.Time { return time.Date(2026, 10, 18, 10, 0, 0, 0, loc) }
	return s, loc
}

func TestDefaultWindow(t *testing.T) {
	s, loc := newTestScheduler(t, &fakeCalendar{}, &fakeWriter{})
	w := s.DefaultWindow()
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2026, 11, 2, 17, 0, 0, 0, loc), w.End)
}

func TestWindowForPreferredDate(t *testing.T) {
	s, loc := newTestScheduler(t, &fakeCalendar{}, &fakeWriter{})

	w := s.WindowFor(&models.MeetingDetails{PreferredTime: &models.PreferredTime{Date: "2026-10-22", Time: "14:00"}})
	assert.Equal(t, time.Date(2026, 10, 22, 14, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2026, 11, 5, 17, 0, 0, 0, loc), w.End)

	past := s.WindowFor(&models.MeetingDetails{PreferredTime: &models.PreferredTime{Date: "2026-10-01"}})
	assert.Equal(t, s.DefaultWindow(), past)

	assert.Equal(t, s.DefaultWindow(), s.WindowFor(&models.MeetingDetails{}))
	assert.Equal(t, s.DefaultWindow(), s.WindowFor(nil))
}

func TestFindSlotsEmptyCalendars(t *testing.T) {
	cal := &fakeCalendar{busy: map[string][]availability.Interval{}}
	s, loc := newTestScheduler(t, cal, &fakeWriter{})

	slots, err := s.FindSlots(context.Background(), SlotQuery{Attendee: attendee, Duration: 30})
	require.NoError(t, err)

	require.Len(t, slots, 3)
	for i, day := range []int{19, 20, 21} {
		assert.Equal(t, time.Date(2026, 10, day, 9, 0, 0, 0, loc), slots[i].Start)
		assert.Equal(t, 30*time.Minute, slots[i].End.Sub(slots[i].Start))
	}
	assert.Equal(t, []string{organizer, attendee}, cal.queried)
	assert.Equal(t, s.DefaultWindow().Start, cal.from)
}

func TestFindSlotsRespectsBothCalendars(t *testing.T) {
	cal := &fakeCalendar{}
	s, loc := newTestScheduler(t, cal, &fakeWriter{})
	mon := func(h int) time.Time { return time.Date(2026, 10, 19, h, 0, 0, 0, loc) }
	cal.busy = map[string][]availability.Interval{
		organizer: {{Start: mon(9), End: mon(10)}},
		attendee:  {{Start: mon(10), End: mon(11)}},
	}

	slots, err := s.FindSlots(context.Background(), SlotQuery{Attendee: attendee, Duration: 60})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, mon(11), slots[0].Start)
}

func TestFindSlotsRaisesShortDurations(t *testing.T) {
	cal := &fakeCalendar{}
	s, _ := newTestScheduler(t, cal, &fakeWriter{})

	slots, err := s.FindSlots(context.Background(), SlotQuery{Attendee: attendee, Duration: 5})
	require.NoError(t, err)
	assert.Equal(t, MinDuration*time.Minute, slots[0].End.Sub(slots[0].Start))
}

func TestFindSlotsNoAvailability(t *testing.T) {
	cal := &fakeCalendar{}
	s, loc := newTestScheduler(t, cal, &fakeWriter{})

	// Saturday and Sunday only.
	weekend := availability.Window{
		Start: time.Date(2026, 10, 24, 9, 0, 0, 0, loc),
		End:   time.Date(2026, 10, 25, 17, 0, 0, 0, loc),
	}
	_, err := s.FindSlots(context.Background(), SlotQuery{Attendee: attendee, Duration: 30, Window: weekend})
	assert.ErrorIs(t, err, ErrNoSlots)
}

func TestFindSlotsErrors(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeCalendar{}, &fakeWriter{})
	_, err := s.FindSlots(context.Background(), SlotQuery{Duration: 30})
	assert.Error(t, err)

	boom := errors.New("forbidden")
	s, _ = newTestScheduler(t, &fakeCalendar{fbErr: boom}, &fakeWriter{})
	_, err = s.FindSlots(context.Background(), SlotQuery{Attendee: attendee, Duration: 30})
	assert.ErrorIs(t, err, boom)
}

func TestBook(t *testing.T) {
	cal := &fakeCalendar{insertID: "evt-1"}
	s, loc := newTestScheduler(t, cal, &fakeWriter{})
	start := time.Date(2026, 10, 20, 13, 0, 0, 0, loc)
	slot := availability.Slot{Start: start.UTC(), End: start.Add(30 * time.Minute).UTC(), Date: "2026-10-20"}
	details := models.MeetingDetails{Title: "Course Planning", Duration: 30, Description: "syllabus review"}

	id, err := s.Book(context.Background(), attendee, slot, details, "Dear Professor Smith,")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)

	assert.Equal(t, "primary", cal.calendarID)
	assert.Equal(t, models.InsertOptions{SendUpdates: true, LockGuests: true}, cal.opts)
	ev := cal.inserted
	assert.Equal(t, "Course Planning", ev.Title)
	assert.Equal(t, "Dear Professor Smith,", ev.Description)
	assert.Equal(t, []string{attendee}, ev.Attendees)
	assert.Equal(t, "America/New_York", ev.TimeZone)
	assert.True(t, ev.StartTime.Equal(start))
	assert.Equal(t, loc, ev.StartTime.Location())

	_, err = s.Book(context.Background(), attendee, slot, details, "")
	require.NoError(t, err)
	assert.Equal(t, "syllabus review", cal.inserted.Description)

	_, err = s.Book(context.Background(), attendee, availability.Slot{Start: start, End: start}, details, "")
	assert.Error(t, err)
}

func TestDraftInvitation(t *testing.T) {
	writer := &fakeWriter{}
	s, loc := newTestScheduler(t, &fakeCalendar{}, writer)
	start := time.Date(2026, 10, 20, 13, 0, 0, 0, loc)
	slot := availability.Slot{Start: start, End: start.Add(time.Hour)}

	msg, err := s.DraftInvitation(context.Background(), models.MeetingDetails{Title: "Office Visit"}, slot, attendee, models.ToneFormal)
	require.NoError(t, err)
	assert.Equal(t, "Dear Professor Smith,", msg)

	assert.Equal(t, "John Smith", writer.got.AttendeeName)
	assert.Equal(t, "Alex Kim", writer.got.SenderName)
	assert.Equal(t, models.ToneFormal, writer.got.Tone)
	assert.Equal(t, loc, writer.got.Location)

	writer.err = errors.New("quota")
	_, err = s.DraftInvitation(context.Background(), models.MeetingDetails{Title: "Office Visit"}, slot, attendee, models.ToneFriendly)
	assert.ErrorIs(t, err, writer.err)
}
