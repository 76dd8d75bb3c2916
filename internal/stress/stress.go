// Package stress flags days on a calendar that carry too many events.
package stress

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"syllacal/internal/models"
)

const (
	MinDays     = 1
	MaxDays     = 365
	DefaultDays = 28

	// A day with more events than this gets a marker event.
	dayThreshold = 7
	// An average above this marks the whole period as high stress.
	periodThreshold = 5.0

	markerColor = "11"
	markerHour  = 9
)

// Calendar is the calendar the analysis reads and annotates.
type Calendar interface {
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*models.Event, error)
	InsertEvent(ctx context.Context, calendarID string, event *models.Event, opts models.InsertOptions) (string, error)
}

// Day is one high-stress day.
type Day struct {
	Date       string `json:"date"`
	EventCount int    `json:"eventCount"`
	// MarkerEventID is empty when the marker could not be created.
	MarkerEventID string `json:"calendarEventId,omitempty"`
}

// Analysis is the result of Analyze.
type Analysis struct {
	TotalDays           int     `json:"totalDays"`
	TotalEvents         int     `json:"totalEvents"`
	AverageEventsPerDay float64 `json:"averageEventsPerDay"`
	HighStressPeriod    bool    `json:"isHighStressWeek"`
	HighStressDays      []Day   `json:"highStressDays"`
}

// Analyzer counts events per day on one calendar.
type Analyzer struct {
	logger     *slog.Logger
	cal        Calendar
	calendarID string
	loc        *time.Location
	now        func() time.Time
}

// NewAnalyzer creates an Analyzer for calendarID. Days are counted in loc.
func NewAnalyzer(logger *slog.Logger, cal Calendar, calendarID string, loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{logger: logger, cal: cal, calendarID: calendarID, loc: loc, now: time.Now}
}

// ClampDays limits days to [MinDays, MaxDays].
func ClampDays(days int) int {
	return max(MinDays, min(MaxDays, days))
}

// Analyze looks at the next days days. Each day with more than seven events
// gets a red 09:00-10:00 marker event.
func (a *Analyzer) Analyze(ctx context.Context, days int) (*Analysis, error) {
	days = ClampDays(days)
	from := a.now().In(a.loc)
	to := from.AddDate(0, 0, days)

	events, err := a.cal.ListEvents(ctx, a.calendarID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	perDay := make(map[string]int)
	for _, ev := range events {
		perDay[a.dateKey(ev)]++
	}

	avg := float64(len(events)) / float64(days)
	out := &Analysis{
		TotalDays:           days,
		TotalEvents:         len(events),
		AverageEventsPerDay: math.Round(avg*100) / 100,
		HighStressPeriod:    avg > periodThreshold,
		HighStressDays:      []Day{},
	}

	dates := make([]string, 0, len(perDay))
	for date, n := range perDay {
		if n > dayThreshold {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	for _, date := range dates {
		day := Day{Date: date, EventCount: perDay[date]}
		id, err := a.mark(ctx, day)
		if err != nil {
			a.logger.Error("Failed to create stress marker", "date", date, "error", err)
		}
		day.MarkerEventID = id
		out.HighStressDays = append(out.HighStressDays, day)
	}

	a.logger.Info("Calendar stress analyzed",
		"days", days, "events", len(events), "average", out.AverageEventsPerDay, "highStressDays", len(out.HighStressDays))
	return out, nil
}

// dateKey is the day an event starts on. All-day events keep their own date.
func (a *Analyzer) dateKey(ev *models.Event) string {
	if ev.AllDay {
		return ev.StartTime.Format(time.DateOnly)
	}
	return ev.StartTime.In(a.loc).Format(time.DateOnly)
}

func (a *Analyzer) mark(ctx context.Context, day Day) (string, error) {
	date, err := time.ParseInLocation(time.DateOnly, day.Date, a.loc)
	if err != nil {
		return "", err
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), markerHour, 0, 0, 0, a.loc)

	marker := &models.Event{
		Title:       fmt.Sprintf("High Stress Day - %d events", day.EventCount),
		Description: fmt.Sprintf("This day has %d events scheduled. Make sure to plan ahead!", day.EventCount),
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		TimeZone:    a.loc.String(),
		ColorID:     markerColor,
		Source:      "stress",
	}
	return a.cal.InsertEvent(ctx, a.calendarID, marker, models.InsertOptions{})
}
