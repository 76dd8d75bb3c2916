// Package caldav writes events to a CalDAV calendar (iCloud by default) and
// exports them as iCalendar files.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"syllacal/internal/models"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

// DefaultEndpoint is the iCloud CalDAV server.
const DefaultEndpoint = "https://caldav.icloud.com/"

// userAgentTransport tags every request with the application's User-Agent.
type userAgentTransport struct {
	Transport http.RoundTripper
}

// RoundTrip adds the User-Agent header to each request.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "syllacal/1.0")
	return t.Transport.RoundTrip(req)
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
	// CalendarPath skips discovery when set.
	CalendarPath string
	HTTPClient   *http.Client
}

// Client is a client for a single calendar on a CalDAV server.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient connects to the server and locates the calendar named
// opts.CalendarName.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Transport: http.DefaultTransport}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: &userAgentTransport{Transport: transport}, Timeout: base.Timeout}

	caldavClient, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, opts.Username, opts.Password), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		logger:       logger,
		calendarPath: opts.CalendarPath,
	}
	if c.calendarPath != "" {
		return c, nil
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.CalendarName)
	calendarPath, err := c.findCalendar(ctx, opts.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// InsertEvent stores event in the calendar and returns its UID. calendarID
// overrides the discovered calendar path when it is not empty. Attendees are
// not notified; opts only applies to Google calendars.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event *models.Event, _ models.InsertOptions) (string, error) {
	calendarPath := c.calendarPath
	if calendarID != "" {
		calendarPath = calendarID
	}
	if event.UID == "" {
		c.logger.Warn("Event has no UID, generating a new one.", "title", event.Title)
		event.UID = GenerateUID()
	}
	c.logger.Debug("Writing event to CalDAV", "eventTitle", event.Title, "uid", event.UID)

	eventPath := path.Join(calendarPath, event.UID+".ics")
	if _, err := c.caldavClient.PutCalendarObject(ctx, eventPath, NewCalendar(event)); err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	c.logger.Info("Successfully wrote event to CalDAV", "eventTitle", event.Title)
	return event.UID, nil
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
