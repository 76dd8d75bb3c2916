package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"syllacal/internal/caldav"
	"syllacal/internal/config"
	"syllacal/internal/models"
	"syllacal/internal/syllabus"

	"github.com/urfave/cli/v2"
)

const (
	targetGoogle = "google"
	targetCalDAV = "caldav"
)

func syllabusCommand() *cli.Command {
	return &cli.Command{
		Name:  "syllabus",
		Usage: "Extract course events from a syllabus and add them to a calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "Syllabus PDF."},
			&cli.StringFlag{Name: "text", Usage: "Describe events in plain text instead of a PDF."},
			&cli.StringSliceFlag{Name: "answer", Usage: "Answer a clarification question as id=answer. Repeatable."},
			&cli.BoolFlag{Name: "no-input", Usage: "Do not ask clarification questions interactively."},
			&cli.StringFlag{Name: "target", Value: targetGoogle, Usage: "Calendar to write to: google or caldav."},
			&cli.StringFlag{Name: "calendar", Value: "primary", Usage: "Google calendar ID to write to."},
			&cli.StringFlag{Name: "ics", Usage: "Also write the events to this .ics file."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be imported without making changes."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			src := syllabus.Source{File: c.String("file"), Text: c.String("text")}
			if src.File == "" && strings.TrimSpace(src.Text) == "" {
				return fmt.Errorf("either --file or --text is required")
			}
			answers, err := parseAnswers(c.StringSlice("answer"))
			if err != nil {
				return err
			}
			src.Clarifications = answers

			ext, closeExt, err := newExtractor(c.Context, logger, cfg)
			if err != nil {
				return err
			}
			defer closeExt()
			processor := syllabus.NewProcessor(logger, ext, cfg.ExtractionsDir)

			result, err := processor.Process(c.Context, src)
			if err != nil {
				return err
			}

			if result.NeedsClarification() && !c.Bool("no-input") {
				given := askQuestions(bufio.NewReader(os.Stdin), result.Questions)
				if len(given) > 0 {
					src.Clarifications = given
					result, err = processor.Process(c.Context, src)
					if err != nil {
						return err
					}
				}
			}

			if len(result.Events) == 0 {
				fmt.Println("No events found.")
				return nil
			}
			printSyllabusEvents(result.Events)

			if path := c.String("ics"); path != "" {
				if err := exportICS(path, result.Events, cfg); err != nil {
					return err
				}
				logger.Info("Wrote iCalendar file.", "file", path, "events", len(result.Events))
			}

			sink, calendarID, stateKey, err := importTarget(c.Context, logger, cfg, c.String("target"), c.String("calendar"))
			if err != nil {
				return err
			}
			importer, err := syllabus.NewImporter(logger, sink, syllabus.ImporterOptions{
				CalendarID: calendarID,
				StateKey:   stateKey,
				StateFile:  cfg.ImportStateFile,
				QPS:        cfg.CalendarQPS,
				DryRun:     c.Bool("dry-run"),
				Location:   cfg.TimeZone,
			})
			if err != nil {
				return fmt.Errorf("failed to create importer: %w", err)
			}

			report, err := importer.Import(c.Context, result.Events)
			if report != nil {
				for _, r := range report.Results {
					if r.Err != nil {
						fmt.Printf("  %-8s %s: %v\n", r.Status, r.Title, r.Err)
						continue
					}
					fmt.Printf("  %-8s %s\n", r.Status, r.Title)
				}
			}
			return err
		},
	}
}

// importTarget returns the sink, calendar id and import state key for --target.
func importTarget(ctx context.Context, logger *slog.Logger, cfg *config.Config, target, googleCalendar string) (syllabus.Sink, string, string, error) {
	switch target {
	case targetGoogle:
		gClient, err := newGoogleClient(ctx, logger, cfg)
		if err != nil {
			return nil, "", "", err
		}
		return gClient, googleCalendar, targetGoogle + ":" + cfg.GoogleAccount + "/" + googleCalendar, nil
	case targetCalDAV:
		if err := cfg.RequireCalDAV(); err != nil {
			return nil, "", "", err
		}
		client, err := caldav.NewClient(ctx, logger, caldav.Options{
			Endpoint:     cfg.CalDAVEndpoint,
			Username:     cfg.CalDAVUsername,
			Password:     cfg.CalDAVPassword,
			CalendarName: cfg.CalDAVCalendarName,
		})
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, "", targetCalDAV + ":" + cfg.CalDAVUsername + "/" + cfg.CalDAVCalendarName, nil
	}
	return nil, "", "", fmt.Errorf("unknown target '%s' (want %s or %s)", target, targetGoogle, targetCalDAV)
}

func parseAnswers(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	answers := make(map[string]string, len(raw))
	for _, a := range raw {
		id, answer, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid --answer '%s', want id=answer", a)
		}
		answers[strings.TrimSpace(id)] = strings.TrimSpace(answer)
	}
	return answers, nil
}

func askQuestions(reader *bufio.Reader, questions []models.ClarificationQuestion) map[string]string {
	answers := make(map[string]string)
	for _, q := range questions {
		fmt.Printf("\n%s\n", q.Question)
		if q.Context != "" {
			fmt.Printf("(%s)\n", q.Context)
		}
		if answer := prompt(reader, "> "); answer != "" {
			answers[q.ID] = answer
		}
	}
	return answers
}

func exportICS(path string, events []models.SyllabusEvent, cfg *config.Config) error {
	calEvents := make([]*models.Event, 0, len(events))
	for _, ev := range events {
		e, err := syllabus.ToCalendarEvent(ev, cfg.TimeZone)
		if err != nil {
			return err
		}
		calEvents = append(calEvents, e)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return caldav.WriteICS(f, calEvents)
}

func printSyllabusEvents(events []models.SyllabusEvent) {
	for _, ev := range events {
		when := ev.Date
		if ev.StartTime != "" {
			when += " " + ev.StartTime
		}
		line := fmt.Sprintf("- [%s] %s  %s", ev.Type.Label(), ev.Title, when)
		if ev.IsRecurring {
			line += fmt.Sprintf("  (%s until %s)", ev.RecurrenceFrequency, ev.RecurrenceEndDate)
		}
		fmt.Println(line)
	}
}
