package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"syllacal/internal/availability"
	"syllacal/internal/models"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

const dateLayout = "2006-01-02"

// refresher forces a token refresh after the API rejects the current one.
type refresher interface {
	Refresh(ctx context.Context) error
}

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	oauth   *oauth2api.Service
	people  *people.Service
	session refresher
	logger  *slog.Logger
	loc     *time.Location
}

// NewClient creates a new Google Calendar client authorised by session.
// Times without an explicit zone are interpreted in loc.
func NewClient(ctx context.Context, logger *slog.Logger, session *Session, loc *time.Location) (*CalendarClient, error) {
	return newClient(ctx, logger, session, loc, option.WithHTTPClient(session.HTTPClient()))
}

func newClient(ctx context.Context, logger *slog.Logger, session refresher, loc *time.Location, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	oauthService, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}
	peopleService, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create people service: %w", err)
	}

	return &CalendarClient{
		service: service,
		oauth:   oauthService,
		people:  peopleService,
		session: session,
		logger:  logger,
		loc:     loc,
	}, nil
}

// withAuthRetry runs call once more after a token refresh if Google answered 401.
func (c *CalendarClient) withAuthRetry(ctx context.Context, op string, call func() error) error {
	err := call()
	if !isUnauthorized(err) {
		return err
	}

	c.logger.Warn("Google rejected the access token, refreshing and retrying.", "op", op)
	if rerr := c.session.Refresh(ctx); rerr != nil {
		return fmt.Errorf("%s: %w", op, rerr)
	}
	return call()
}

func isUnauthorized(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized
}

// PrimaryCalendarID returns the id of the account's primary calendar, which
// is the account's email address.
func (c *CalendarClient) PrimaryCalendarID(ctx context.Context) (string, error) {
	var list *calendar.CalendarList
	err := c.withAuthRetry(ctx, "list calendars", func() (err error) {
		list, err = c.service.CalendarList.List().Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to list calendars: %w", err)
	}

	for _, item := range list.Items {
		if item.Primary {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("no primary calendar found among %d calendars", len(list.Items))
}

// FreeBusy returns the busy intervals of every identity between from and to.
// Identities Google cannot see into come back with no intervals.
func (c *CalendarClient) FreeBusy(ctx context.Context, identities []string, from, to time.Time) (map[string][]availability.Interval, error) {
	req := &calendar.FreeBusyRequest{
		TimeMin:  from.Format(time.RFC3339),
		TimeMax:  to.Format(time.RFC3339),
		TimeZone: c.loc.String(),
	}
	for _, id := range identities {
		req.Items = append(req.Items, &calendar.FreeBusyRequestItem{Id: id})
	}

	var resp *calendar.FreeBusyResponse
	err := c.withAuthRetry(ctx, "freebusy", func() (err error) {
		resp, err = c.service.Freebusy.Query(req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	busy := make(map[string][]availability.Interval, len(identities))
	for _, id := range identities {
		cal, ok := resp.Calendars[id]
		if !ok {
			c.logger.Warn("Free/busy response has no entry for calendar", "calendarID", id)
			busy[id] = nil
			continue
		}
		for _, e := range cal.Errors {
			c.logger.Warn("Free/busy lookup reported an error", "calendarID", id, "reason", e.Reason)
		}

		intervals := make([]availability.Interval, 0, len(cal.Busy))
		for _, p := range cal.Busy {
			start, err := time.Parse(time.RFC3339, p.Start)
			if err != nil {
				return nil, fmt.Errorf("bad busy start %q for %s: %w", p.Start, id, err)
			}
			end, err := time.Parse(time.RFC3339, p.End)
			if err != nil {
				return nil, fmt.Errorf("bad busy end %q for %s: %w", p.End, id, err)
			}
			intervals = append(intervals, availability.Interval{Start: start, End: end})
		}
		busy[id] = intervals
	}

	c.logger.Debug("Fetched free/busy", "calendars", len(identities), "from", from, "to", to)
	return busy, nil
}

// InsertEvent writes event to calendarID and returns the new event id.
func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, event *models.Event, opts models.InsertOptions) (string, error) {
	ge := c.toGoogleEvent(event, opts)

	var created *calendar.Event
	err := c.withAuthRetry(ctx, "insert event", func() (err error) {
		call := c.service.Events.Insert(calendarID, ge).Context(ctx)
		if opts.SendUpdates {
			call = call.SendUpdates("all")
		}
		created, err = call.Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert event %q: %w", event.Title, err)
	}

	c.logger.Info("Created Google Calendar event", "title", event.Title, "eventID", created.Id, "calendarID", calendarID)
	return created.Id, nil
}

// ListEvents fetches the single (expanded) events of calendarID between from and to.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*models.Event, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "from", from, "to", to)

	var items []*calendar.Event
	err := c.withAuthRetry(ctx, "list events", func() error {
		items = nil
		return c.service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			OrderBy("startTime").
			Pages(ctx, func(page *calendar.Events) error {
				items = append(items, page.Items...)
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)
	return c.toInternalEvents(items, calendarID), nil
}

// toInternalEvents converts Google Calendar events to the internal Event model.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event, source string) []*models.Event {
	var internalEvents []*models.Event
	for _, item := range googleEvents {
		if item.Start == nil {
			continue
		}

		event := &models.Event{
			ID:          item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Location:    item.Location,
			ColorID:     item.ColorId,
			UID:         item.ICalUID,
			Source:      fmt.Sprintf("google-%s", source),
		}

		start, end, allDay, err := c.eventTimes(item)
		if err != nil {
			c.logger.Warn("Skipping event with unreadable times", "eventID", item.Id, "title", item.Summary, "error", err)
			continue
		}
		event.StartTime, event.EndTime, event.AllDay = start, end, allDay

		if item.Organizer != nil {
			event.Organizer = item.Organizer.Email
		}
		for _, a := range item.Attendees {
			event.Attendees = append(event.Attendees, a.Email)
		}
		internalEvents = append(internalEvents, event)
	}
	return internalEvents
}

// eventTimes parses the start and end of a Google event. A missing end is
// taken to be the start.
func (c *CalendarClient) eventTimes(item *calendar.Event) (start, end time.Time, allDay bool, err error) {
	parse := func(dt *calendar.EventDateTime) (time.Time, error) {
		if allDay {
			return time.ParseInLocation(dateLayout, dt.Date, c.loc)
		}
		return time.Parse(time.RFC3339, dt.DateTime)
	}

	switch {
	case item.Start.DateTime != "":
	case item.Start.Date != "":
		allDay = true
	default:
		return start, end, false, fmt.Errorf("event has no start time")
	}

	if start, err = parse(item.Start); err != nil {
		return start, end, allDay, fmt.Errorf("invalid start: %w", err)
	}
	end = start
	if item.End != nil && (item.End.DateTime != "" || item.End.Date != "") {
		if end, err = parse(item.End); err != nil {
			return start, end, allDay, fmt.Errorf("invalid end: %w", err)
		}
	}
	return start, end, allDay, nil
}

// toGoogleEvent converts an internal Event to the Calendar API representation.
func (c *CalendarClient) toGoogleEvent(event *models.Event, opts models.InsertOptions) *calendar.Event {
	tz := event.TimeZone
	if tz == "" {
		tz = c.loc.String()
	}

	ge := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		ColorId:     event.ColorID,
		Recurrence:  event.Recurrence,
		Reminders:   &calendar.EventReminders{UseDefault: true},
	}

	if event.AllDay {
		end := event.EndTime
		if !end.After(event.StartTime) {
			end = event.StartTime.AddDate(0, 0, 1)
		}
		ge.Start = &calendar.EventDateTime{Date: event.StartTime.Format(dateLayout)}
		ge.End = &calendar.EventDateTime{Date: end.Format(dateLayout)}
	} else {
		ge.Start = &calendar.EventDateTime{DateTime: event.StartTime.Format(time.RFC3339), TimeZone: tz}
		ge.End = &calendar.EventDateTime{DateTime: event.EndTime.Format(time.RFC3339), TimeZone: tz}
	}

	for _, email := range event.Attendees {
		ge.Attendees = append(ge.Attendees, &calendar.EventAttendee{Email: email})
	}

	if opts.LockGuests {
		ge.GuestsCanModify = false
		ge.GuestsCanInviteOthers = googleapi.Bool(false)
		ge.ForceSendFields = append(ge.ForceSendFields, "GuestsCanModify")
	}
	return ge
}
