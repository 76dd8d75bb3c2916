// Package syllabus extracts course events from syllabi and imports them into
// a calendar.
package syllabus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"syllacal/internal/extractor"
	"syllacal/internal/models"
)

const (
	singleEventMarker = "extract only one event"
	sectionQuestionID = "sections-applicability"
	textInputSource   = "text-input"

	sectionQuestion = `Do these events apply to a specific section, or are they general events for all sections? ` +
		`If specific, name the section (e.g. "Section A" or "All sections").`
)

// EventExtractor is the part of the language model client the processor needs.
type EventExtractor interface {
	ExtractSyllabus(ctx context.Context, in extractor.SyllabusInput) ([]models.SyllabusEvent, error)
	ClarifyingQuestion(ctx context.Context, events []models.SyllabusEvent, text string) (*models.ClarificationQuestion, error)
}

// Source is one thing to extract events from: a PDF file or typed text.
type Source struct {
	File string
	Text string
	// Clarifications holds answers to the questions of a previous pass.
	Clarifications map[string]string
}

func (s Source) isText() bool {
	return strings.TrimSpace(s.Text) != ""
}

func (s Source) name() string {
	if s.isText() {
		return textInputSource
	}
	return filepath.Base(s.File)
}

// Processor runs extraction passes and archives their results.
type Processor struct {
	ext        EventExtractor
	logger     *slog.Logger
	archiveDir string
	readPDF    func(path string) (string, error)
	now        func() time.Time
}

// NewProcessor returns a Processor that writes archives to archiveDir. An
// empty archiveDir disables archiving.
func NewProcessor(logger *slog.Logger, ext EventExtractor, archiveDir string) *Processor {
	return &Processor{
		ext:        ext,
		logger:     logger,
		archiveDir: archiveDir,
		readPDF:    ReadPDF,
		now:        time.Now,
	}
}

// Process runs one extraction pass. The first pass (no clarifications) also
// returns the questions the user should answer before a second pass.
func (p *Processor) Process(ctx context.Context, src Source) (*models.Extraction, error) {
	text := strings.TrimSpace(src.Text)
	if !src.isText() {
		if src.File == "" {
			return nil, extractor.ErrEmptyInput
		}
		var err error
		text, err = p.readPDF(src.File)
		if err != nil {
			p.logger.Warn("Could not read syllabus, nothing to extract", "file", src.File, "error", err)
			return &models.Extraction{Events: []models.SyllabusEvent{}}, nil
		}
		if text == "" {
			p.logger.Warn("Syllabus has no text, nothing to extract", "file", src.File)
			return &models.Extraction{Events: []models.SyllabusEvent{}}, nil
		}
	}

	events, err := p.ext.ExtractSyllabus(ctx, extractor.SyllabusInput{
		Text:           text,
		IsText:         src.isText(),
		Clarifications: src.Clarifications,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract events: %w", err)
	}

	if src.isText() && strings.Contains(strings.ToLower(text), singleEventMarker) && len(events) > 1 {
		events = events[:1]
	}
	normalizeCourseName(events)
	events = p.dropInvalidDates(events)

	out := &models.Extraction{Events: events}
	if len(src.Clarifications) == 0 {
		out.Questions = p.questions(ctx, src, events, text)
	}

	if err := p.archive(src.name(), events); err != nil {
		p.logger.Error("Failed to archive extraction", "error", err)
	}
	return out, nil
}

func (p *Processor) questions(ctx context.Context, src Source, events []models.SyllabusEvent, text string) []models.ClarificationQuestion {
	var qs []models.ClarificationQuestion
	if !src.isText() {
		qs = append(qs, models.ClarificationQuestion{
			ID:       sectionQuestionID,
			Question: sectionQuestion,
			Field:    models.FieldSection,
			Context:  "Used to associate the events with the right course section.",
		})
	}
	if len(events) == 0 {
		return qs
	}

	q, err := p.ext.ClarifyingQuestion(ctx, events, text)
	if err != nil {
		p.logger.Warn("Could not generate a clarification question", "error", err)
		return qs
	}
	if q != nil {
		qs = append(qs, *q)
	}
	return qs
}

// normalizeCourseName gives every event the most common non-empty course name.
// Ties go to the name seen first.
func normalizeCourseName(events []models.SyllabusEvent) {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, ev := range events {
		name := strings.TrimSpace(ev.CourseName)
		if name == "" {
			continue
		}
		counts[name]++
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	if best == "" {
		return
	}
	for i := range events {
		events[i].CourseName = best
	}
}

func (p *Processor) dropInvalidDates(events []models.SyllabusEvent) []models.SyllabusEvent {
	kept := events[:0]
	for _, ev := range events {
		if !validDate(ev.Date) {
			p.logger.Warn("Dropping event with invalid date", "title", ev.Title, "date", ev.Date)
			continue
		}
		kept = append(kept, ev)
	}
	return kept
}

// validDate accepts YYYY-MM-DD strings naming a real calendar day.
func validDate(s string) bool {
	if len(s) != len(time.DateOnly) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

type archiveRecord struct {
	ExtractedAt time.Time              `json:"extractedAt"`
	SourceFile  string                 `json:"sourceFile"`
	Events      []models.SyllabusEvent `json:"events"`
}

func (p *Processor) archive(source string, events []models.SyllabusEvent) error {
	if p.archiveDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	now := p.now().UTC()
	data, err := json.MarshalIndent(archiveRecord{ExtractedAt: now, SourceFile: source, Events: events}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.Format("2006-01-02T15:04:05.000Z"))
	path := filepath.Join(p.archiveDir, "extraction-"+stamp+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write extraction archive: %w", err)
	}
	p.logger.Debug("Archived extraction", "file", path, "events", len(events))
	return nil
}
