// Package extractor turns free text into meeting requests, syllabus events and
// invitation messages with the help of a language model.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"syllacal/internal/availability"
	"syllacal/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrEmptyInput is returned when there is no text to work on.
	ErrEmptyInput = errors.New("input text is empty")
	// ErrInvalidResponse is returned when the model's answer cannot be used.
	ErrInvalidResponse = errors.New("invalid model response")
)

const (
	defaultMeetingMinutes = 30
	minHour               = 6
	maxHour               = 22
	clarifyExcerptLen     = 2000
	singleEventMarker     = "extract only one event"
)

// Extractor wraps a Generator with prompts and response validation.
type Extractor struct {
	gen    Generator
	logger *slog.Logger
	newID  func() string
}

// New returns an Extractor that sends prompts to gen.
func New(gen Generator, logger *slog.Logger) *Extractor {
	return &Extractor{
		gen:    gen,
		logger: logger,
		newID: func() string {
			return "event-" + uuid.NewString()[:8]
		},
	}
}

// ParseMeeting extracts a structured meeting request from text. today anchors
// relative dates such as "next Monday".
func (e *Extractor) ParseMeeting(ctx context.Context, text string, today time.Time) (*models.MeetingDetails, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	prompt := fmt.Sprintf("Today is %s (%s).\nParse this meeting request into structured data: %q",
		today.Format("2006-01-02"), today.Weekday(), text)
	raw, err := e.gen.Generate(ctx, Request{System: meetingSystemPrompt, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("parse meeting: %w", err)
	}

	var out struct {
		Title         string                `json:"title"`
		Duration      float64               `json:"duration"`
		PreferredTime *models.PreferredTime `json:"preferredTime"`
		Description   string                `json:"description"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("parse meeting: %w", err)
	}

	details := models.MeetingDetails{
		Title:         strings.TrimSpace(out.Title),
		Duration:      int(math.Round(out.Duration)),
		PreferredTime: out.PreferredTime,
		Description:   strings.TrimSpace(out.Description),
	}
	if details.Title == "" {
		return nil, fmt.Errorf("parse meeting: missing title: %w", ErrInvalidResponse)
	}
	if details.Duration <= 0 {
		details.Duration = defaultMeetingMinutes
	}

	if pt := details.PreferredTime; pt != nil {
		pt.Time = clampTime(pt.Time)
		if _, err := time.Parse("2006-01-02", pt.Date); err != nil {
			pt.Date = ""
		}
		if p, err := availability.ParsePreference(pt.TimeWindow); err == nil {
			pt.TimeWindow = string(p)
		} else {
			e.logger.Warn("Model returned an unknown time window, using any", "timeWindow", pt.TimeWindow)
			pt.TimeWindow = string(availability.Any)
		}
		if pt.IsZero() {
			details.PreferredTime = nil
		}
	}
	return &details, nil
}

// clampTime keeps an HH:MM string inside [06:00, 22:00). Early times move to
// 09:00 and late ones to 17:00. Unparseable values become "".
func clampTime(hhmm string) string {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" {
		return ""
	}
	h, m, ok := parseClock(hhmm)
	if !ok {
		return ""
	}
	switch {
	case h < minHour:
		return "09:00"
	case h >= maxHour:
		return "17:00"
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func parseClock(s string) (hour, minute int, ok bool) {
	hs, ms, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// SyllabusInput is the text of one extraction pass.
type SyllabusInput struct {
	Text string
	// IsText is true for typed descriptions and false for syllabus documents.
	IsText bool
	// Clarifications maps question ids to the user's answers.
	Clarifications map[string]string
}

type rawSyllabusEvent struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	Date                 string `json:"date"`
	StartTime            string `json:"startTime"`
	EndTime              string `json:"endTime"`
	Location             string `json:"location"`
	Description          string `json:"description"`
	CourseName           string `json:"courseName"`
	IsRecurring          bool   `json:"isRecurring"`
	RecurrenceFrequency  string `json:"recurrenceFrequency"`
	RecurrenceEndDate    string `json:"recurrenceEndDate"`
	RecurrenceDaysOfWeek string `json:"recurrenceDaysOfWeek"`
}

// ExtractSyllabus asks the model for the events in in.Text. Events of an
// unknown type are dropped; missing ids are generated.
func (e *Extractor) ExtractSyllabus(ctx context.Context, in SyllabusInput) ([]models.SyllabusEvent, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	raw, err := e.gen.Generate(ctx, Request{
		System: syllabusSystemPrompt,
		Prompt: syllabusPrompt(text, in),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("extract syllabus: %w", err)
	}

	var out struct {
		Events []rawSyllabusEvent `json:"events"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("extract syllabus: %w", err)
	}

	events := make([]models.SyllabusEvent, 0, len(out.Events))
	for _, r := range out.Events {
		ev, ok := e.toSyllabusEvent(r)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func syllabusPrompt(text string, in SyllabusInput) string {
	verb := "Extract all events from"
	if strings.Contains(strings.ToLower(text), singleEventMarker) {
		verb = "Extract only ONE event from"
	}
	source := "syllabus"
	if in.IsText {
		source = "text"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s this %s:\n\n%s", verb, source, text)
	if len(in.Clarifications) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\nUser clarifications:\n")
	ids := make([]string, 0, len(in.Clarifications))
	for id := range in.Clarifications {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(&sb, "- %s\n", in.Clarifications[id])
	}
	sb.WriteString(`
Apply these clarifications to the extraction. A clarified time belongs to startTime or endTime according to the
question it answers. Keep correctly extracted start times unless a clarification explicitly changes them.`)
	return sb.String()
}

func (e *Extractor) toSyllabusEvent(r rawSyllabusEvent) (models.SyllabusEvent, bool) {
	typ := models.EventType(strings.TrimSpace(r.Type))
	if !typ.Valid() {
		e.logger.Warn("Dropping event with unknown type", "title", r.Title, "type", r.Type)
		return models.SyllabusEvent{}, false
	}

	ev := models.SyllabusEvent{
		ID:          strings.TrimSpace(r.ID),
		Title:       strings.TrimSpace(r.Title),
		Type:        typ,
		Date:        strings.TrimSpace(r.Date),
		StartTime:   normalizeClock(r.StartTime),
		EndTime:     normalizeClock(r.EndTime),
		Location:    strings.TrimSpace(r.Location),
		Description: strings.TrimSpace(r.Description),
		CourseName:  strings.TrimSpace(r.CourseName),
	}
	if ev.ID == "" {
		ev.ID = e.newID()
	}

	if r.IsRecurring {
		freq := strings.ToLower(strings.TrimSpace(r.RecurrenceFrequency))
		switch freq {
		case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyBiweekly:
		default:
			freq = models.FrequencyWeekly
		}
		ev.IsRecurring = true
		ev.RecurrenceFrequency = freq
		ev.RecurrenceEndDate = strings.TrimSpace(r.RecurrenceEndDate)
		ev.RecurrenceDaysOfWeek = strings.TrimSpace(r.RecurrenceDaysOfWeek)
	}
	return ev, true
}

// normalizeClock returns HH:MM or "" when s is not a clock time.
func normalizeClock(s string) string {
	h, m, ok := parseClock(strings.TrimSpace(s))
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ClarifyingQuestion asks the model for the single most useful question about
// events. When the model offers none a question is derived from the first
// event. It returns nil only when there are no events to ask about.
func (e *Extractor) ClarifyingQuestion(ctx context.Context, events []models.SyllabusEvent, text string) (*models.ClarificationQuestion, error) {
	payload, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("clarify: %w", err)
	}
	excerpt := truncateRunes(text, clarifyExcerptLen)
	prompt := fmt.Sprintf("Extracted events:\n%s\n\nOriginal text (first %d characters):\n%s\n\nAsk exactly one clarification question.",
		payload, clarifyExcerptLen, excerpt)

	raw, err := e.gen.Generate(ctx, Request{System: clarifySystemPrompt, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("clarify: %w", err)
	}

	var out struct {
		Questions []models.ClarificationQuestion `json:"questions"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		e.logger.Warn("Could not decode clarification questions, using fallback", "error", err)
	}
	for _, q := range out.Questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if q.ID == "" {
			q.ID = "clarify-1"
		}
		switch q.Field {
		case models.FieldCourseName, models.FieldDate, models.FieldSection, models.FieldOther:
		default:
			q.Field = models.FieldOther
		}
		return &q, nil
	}
	return fallbackQuestion(events), nil
}

func fallbackQuestion(events []models.SyllabusEvent) *models.ClarificationQuestion {
	if len(events) == 0 {
		return nil
	}
	ev := events[0]
	note := "Event: " + ev.Title
	switch {
	case ev.StartTime != "" && ev.EndTime == "":
		return &models.ClarificationQuestion{
			ID:       "end-time-default",
			Question: fmt.Sprintf("What time does %q end? (Only the start time %s is specified.)", ev.Title, ev.StartTime),
			Field:    models.FieldOther,
			Context:  note,
		}
	case ev.CourseName == "":
		return &models.ClarificationQuestion{
			ID:       "course-name-default",
			Question: fmt.Sprintf("What is the course name for %q?", ev.Title),
			Field:    models.FieldCourseName,
			Context:  note,
		}
	}
	start := ev.StartTime
	if start == "" {
		start = "not specified"
	}
	return &models.ClarificationQuestion{
		ID:       "general-confirm-default",
		Question: fmt.Sprintf("Please confirm the details for %q: date %s, time %s. Is everything correct?", ev.Title, ev.Date, start),
		Field:    models.FieldOther,
		Context:  note,
	}
}

// decodeJSON unmarshals a model answer, tolerating a surrounding markdown fence.
func decodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if s == "" {
		return fmt.Errorf("empty answer: %w", ErrInvalidResponse)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
