package syllabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"syllacal/internal/models"

	"golang.org/x/time/rate"
)

// Sink is a calendar that accepts new events.
type Sink interface {
	InsertEvent(ctx context.Context, calendarID string, event *models.Event, opts models.InsertOptions) (string, error)
}

// ImportState remembers which syllabus events were already imported, per
// destination calendar. The outer key is the calendar's state key, the inner
// key is the event UID, and the value is the ID the calendar assigned.
type ImportState map[string]map[string]string

// Status is the outcome of importing one event.
type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
	StatusPlanned Status = "planned"
	StatusFailed  Status = "failed"
)

// Result reports what happened to one syllabus event.
type Result struct {
	EventID         string
	Title           string
	CalendarEventID string
	Status          Status
	Err             error
}

// Report summarizes an import run.
type Report struct {
	Results []Result
}

// Count returns the number of results with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// ImporterOptions configures an Importer.
type ImporterOptions struct {
	CalendarID string
	// StateKey identifies the destination calendar in the state file.
	// Defaults to CalendarID.
	StateKey string
	// StateFile is where the import state is kept. Empty disables it.
	StateFile string
	// QPS caps inserts per second. Zero or less means unlimited.
	QPS      float64
	DryRun   bool
	Location *time.Location
}

// Importer writes syllabus events to a calendar.
type Importer struct {
	logger     *slog.Logger
	sink       Sink
	calendarID string
	stateFile  string
	state      ImportState
	stateKey   string
	limiter    *rate.Limiter
	dryRun     bool
	loc        *time.Location
}

// NewImporter creates a new Importer and loads its state file.
func NewImporter(logger *slog.Logger, sink Sink, opts ImporterOptions) (*Importer, error) {
	state := make(ImportState)
	if opts.StateFile != "" {
		loaded, err := loadState(opts.StateFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("No import state file found, starting fresh.", "file", opts.StateFile)
		case err != nil:
			return nil, fmt.Errorf("failed to load import state: %w", err)
		default:
			state = loaded
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.QPS), 1)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	stateKey := opts.StateKey
	if stateKey == "" {
		stateKey = opts.CalendarID
	}

	return &Importer{
		logger:     logger,
		sink:       sink,
		calendarID: opts.CalendarID,
		stateFile:  opts.StateFile,
		state:      state,
		stateKey:   stateKey,
		limiter:    limiter,
		dryRun:     opts.DryRun,
		loc:        loc,
	}, nil
}

// Import writes events one by one. A failing event is reported and the run
// continues; only a cancelled context stops it early.
func (im *Importer) Import(ctx context.Context, events []models.SyllabusEvent) (*Report, error) {
	im.logger.Info("Starting syllabus import.", "events", len(events), "calendarID", im.calendarID, "stateKey", im.stateKey)
	report := &Report{Results: make([]Result, 0, len(events))}

	var runErr error
	for _, ev := range events {
		res, err := im.importEvent(ctx, ev)
		report.Results = append(report.Results, res)
		if err != nil {
			im.logger.Error("Failed to import event", "title", ev.Title, "error", err)
			if ctx.Err() != nil {
				runErr = fmt.Errorf("import interrupted: %w", ctx.Err())
				break
			}
		}
	}

	if !im.dryRun && im.stateFile != "" {
		if err := im.saveState(); err != nil {
			im.logger.Error("Failed to save import state", "error", err)
		}
	}

	im.logger.Info("Syllabus import finished.",
		"created", report.Count(StatusCreated),
		"skipped", report.Count(StatusSkipped),
		"failed", report.Count(StatusFailed))
	return report, runErr
}

func (im *Importer) importEvent(ctx context.Context, ev models.SyllabusEvent) (Result, error) {
	res := Result{EventID: ev.ID, Title: ev.Title}

	event, err := ToCalendarEvent(ev, im.loc)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res, err
	}

	if id, exists := im.state[im.stateKey][event.UID]; exists {
		im.logger.Debug("Event already imported, skipping.", "title", event.Title, "calendarEventID", id)
		res.Status, res.CalendarEventID = StatusSkipped, id
		return res, nil
	}

	if im.dryRun {
		im.logger.Info("[DRY RUN] Would create event", "title", event.Title, "startTime", event.StartTime)
		res.Status = StatusPlanned
		return res, nil
	}

	if err := im.limiter.Wait(ctx); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res, err
	}

	id, err := im.sink.InsertEvent(ctx, im.calendarID, event, models.InsertOptions{})
	if err != nil {
		err = fmt.Errorf("failed to insert event: %w", err)
		res.Status, res.Err = StatusFailed, err
		return res, err
	}

	imported, ok := im.state[im.stateKey]
	if !ok {
		imported = make(map[string]string)
		im.state[im.stateKey] = imported
	}
	imported[event.UID] = id
	res.Status, res.CalendarEventID = StatusCreated, id
	return res, nil
}

func loadState(path string) (ImportState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state ImportState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(ImportState)
	}
	return state, nil
}

func (im *Importer) saveState() error {
	data, err := json.MarshalIndent(im.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal import state: %w", err)
	}
	return os.WriteFile(im.stateFile, data, 0644)
}
